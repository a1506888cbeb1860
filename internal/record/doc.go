// Package record defines the card record extracted from each scanned image and
// the versioned schema descriptor that ties together the model request format,
// the response validation document, and the CSV column order.
package record
