// CLAUDE:SUMMARY Pre-materialization security checks: size limits, extension allow-list, magic-byte signatures.
// Package partshield validates MIME parts before anything touches storage:
// size ceilings, extension allow-lists, content signatures, and filename
// safety. It only reports; whether a failed check is fatal or skippable is
// the extractor's policy, not this package's.
package partshield

import (
	"bytes"
	"fmt"
	"path"
	"strings"
)

// Limits carries the configured ceilings and allow-lists.
// The zero value disables the optional checks; DefaultLimits gives the
// production ceilings.
type Limits struct {
	// MaxPartBytes caps a single decoded part. <= 0 disables the check.
	MaxPartBytes int64 `yaml:"max_part_bytes"`
	// MaxMessageBytes caps the whole raw message. <= 0 disables the check.
	MaxMessageBytes int64 `yaml:"max_message_bytes"`
	// AllowedExtensions, when non-empty, is the only set of attachment
	// extensions that may be materialized (lower-case, with dot).
	AllowedExtensions []string `yaml:"allowed_extensions"`
	// MaxDepth bounds MIME nesting; <= 0 uses the parser default.
	MaxDepth int `yaml:"max_depth"`
}

// DefaultLimits returns the production ceilings: 50 MiB per part,
// 200 MiB per message, all extensions allowed.
func DefaultLimits() Limits {
	return Limits{
		MaxPartBytes:    50 * 1024 * 1024,
		MaxMessageBytes: 200 * 1024 * 1024,
	}
}

// ErrorKind classifies validation failures.
type ErrorKind string

const (
	TooLarge            ErrorKind = "too_large"
	DisallowedExtension ErrorKind = "disallowed_extension"
	SignatureMismatch   ErrorKind = "signature_mismatch"
	UnsafeName          ErrorKind = "unsafe_name"
)

// SecurityError is a typed validation failure.
type SecurityError struct {
	Kind     ErrorKind
	Filename string
	Detail   string
}

func (e *SecurityError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("security %s (%s): %s", e.Kind, e.Filename, e.Detail)
	}
	return fmt.Sprintf("security %s: %s", e.Kind, e.Detail)
}

// signatures maps declared content types to accepted magic-byte prefixes.
// Best-effort: absence of an entry means no signature check applies, and a
// match proves nothing beyond gross consistency.
var signatures = map[string][][]byte{
	"image/png":  {[]byte("\x89PNG\r\n\x1a\n")},
	"image/jpeg": {[]byte("\xff\xd8\xff")},
	"image/gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	"application/pdf": {[]byte("%PDF-")},
	"application/zip": {[]byte("PK\x03\x04"), []byte("PK\x05\x06")},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {[]byte("PK\x03\x04")},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {[]byte("PK\x03\x04")},
}

// ValidatePart runs all checks against a decoded payload. filename is the
// declared (untrusted) name, contentType the declared media type. All
// checks must pass; the first failure is returned.
func ValidatePart(filename, contentType string, decoded []byte, limits Limits) error {
	if limits.MaxPartBytes > 0 && int64(len(decoded)) > limits.MaxPartBytes {
		return &SecurityError{
			Kind:     TooLarge,
			Filename: filename,
			Detail:   fmt.Sprintf("%d bytes exceeds part limit %d", len(decoded), limits.MaxPartBytes),
		}
	}

	if filename != "" {
		if err := validateName(filename); err != nil {
			return err
		}
		if len(limits.AllowedExtensions) > 0 {
			ext := strings.ToLower(path.Ext(filename))
			if !contains(limits.AllowedExtensions, ext) {
				return &SecurityError{
					Kind:     DisallowedExtension,
					Filename: filename,
					Detail:   fmt.Sprintf("extension %q not in allow-list", ext),
				}
			}
		}
	}

	ct := strings.ToLower(contentType)
	if semi := strings.IndexByte(ct, ';'); semi >= 0 {
		ct = strings.TrimSpace(ct[:semi])
	}
	if magics, ok := signatures[ct]; ok && len(decoded) > 0 {
		matched := false
		for _, magic := range magics {
			if bytes.HasPrefix(decoded, magic) {
				matched = true
				break
			}
		}
		if !matched {
			return &SecurityError{
				Kind:     SignatureMismatch,
				Filename: filename,
				Detail:   fmt.Sprintf("content does not match signature for %s", ct),
			}
		}
	}
	return nil
}

// ValidateMessage checks the whole-document ceiling. A failure here is
// fatal to the document by policy.
func ValidateMessage(size int64, limits Limits) error {
	if limits.MaxMessageBytes > 0 && size > limits.MaxMessageBytes {
		return &SecurityError{
			Kind:   TooLarge,
			Detail: fmt.Sprintf("message %d bytes exceeds limit %d", size, limits.MaxMessageBytes),
		}
	}
	return nil
}

// validateName rejects names that still smell of traversal after the
// declared value is taken at face value. safename strips these anyway;
// this check exists so a validation failure is recorded rather than
// silently repaired.
func validateName(name string) error {
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0) {
		return &SecurityError{
			Kind:     UnsafeName,
			Filename: name,
			Detail:   "path traversal sequence in declared filename",
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
