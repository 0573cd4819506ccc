// Package markdown renders blog Markdown into HTML and extracts front matter
// from Markdown files. Raw HTML found in the source is always escaped so the
// output can be embedded in public pages without a separate sanitiser.
package markdown
