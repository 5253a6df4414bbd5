// Package textutil provides file-name sanitizing helpers.
//
// Names are NFC-normalized before unsafe characters are replaced so that a
// recording or an uploaded clip with decomposed accents maps to one stable
// subtitle file name.
package textutil
