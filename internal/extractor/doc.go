// Package extractor derives DocumentMetadata and embeddable text from files on disk.
//
// Three formats are supported, selected by extension: plain text (.txt),
// Markdown (.md, .markdown) and PDF (.pdf). Each format contributes only what
// the file itself declares (a first-line title, the PDF info dictionary); a
// single shared step fills everything else from the filesystem and defaults.
//
// # Timestamps
//
// created_at is taken from the first source that yields a value:
//
//  1. the PDF CreationDate
//  2. the filesystem birth time (statx on Linux)
//  3. the inode change time
//
// modified_at follows the PDF ModDate, then the modification time, then the
// change time. A failure in any source is logged and the next one is tried;
// it never fails the extraction.
//
// # Usage
//
//	ex := extractor.New(extractor.WithLogger(logger))
//	meta, err := ex.Extract(ctx, "docs/report.pdf")
//	if errors.Is(err, types.ErrUnsupportedFormat) {
//	    // skip
//	}
//	text, err := ex.LoadText(ctx, "docs/report.pdf")
package extractor
