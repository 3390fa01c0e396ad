package vectorindex

import "github.com/dshills/docsearch/internal/storage"

// Migrations contains the vector database migrations in order
var Migrations = []storage.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    dimension INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS vectors (
    collection TEXT NOT NULL,
    document_id TEXT NOT NULL,
    vector BLOB NOT NULL,
    raw_text TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, document_id)
);
`,
		Down: `
DROP TABLE IF EXISTS vectors;
DROP TABLE IF EXISTS collections;
`,
	},
}
