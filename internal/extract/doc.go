// Package extract turns one scanned card image into a record.
//
// Extract reads the image, downscales it, re-encodes it as JPEG, and sends it
// with the fixed archival prompt and the strict record schema to the
// recognition service. The JSON answer is canonicalised, validated against the
// schema, and decoded. Every failure is classified as an empty response, a
// malformed answer, or a service error, and Reason maps each to the text
// written to the error log.
package extract
