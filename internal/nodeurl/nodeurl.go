// Package nodeurl parses and formats node: URLs, the cross-document link
// targets of Weave Markdown:
//
//	node:<id>[?display=<display>&export=<export>&<key>[=<value>]...]
//
// Extension keys are emitted by Format in lexicographic order after display
// and export, so formatting is deterministic regardless of map iteration.
package nodeurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/weave/internal/models"
)

// Scheme is the literal prefix of every node URL.
const Scheme = "node:"

const (
	keyDisplay = "display"
	keyExport  = "export"
)

var (
	ErrNotNodeURL         = errors.New(`URL must start with "node:"`)
	ErrMissingID          = errors.New("node ID is required")
	ErrDuplicateParameter = errors.New("duplicate parameter")
	ErrInvalidValue       = errors.New("invalid parameter value")
	ErrMalformedQuery     = errors.New("malformed query string")
)

// IsNodeURL reports whether href uses the node: scheme.
func IsNodeURL(href string) bool {
	return strings.HasPrefix(href, Scheme)
}

// RawID returns the best-effort target id of a node URL: the text between
// the scheme and the first '?'. It does not validate anything.
func RawID(href string) string {
	rest := strings.TrimPrefix(href, Scheme)
	id, _, _ := strings.Cut(rest, "?")
	return id
}

// Parse decodes href into a NodeRef.
func Parse(href string) (models.NodeRef, error) {
	if !IsNodeURL(href) {
		return models.NodeRef{}, ErrNotNodeURL
	}
	id, query, _ := strings.Cut(href[len(Scheme):], "?")
	if id == "" {
		return models.NodeRef{}, ErrMissingID
	}

	ref := models.NodeRef{ID: id}
	if query == "" {
		return ref, nil
	}

	seen := make(map[string]bool, 2)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return models.NodeRef{}, fmt.Errorf("%w: key %q: %v", ErrMalformedQuery, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return models.NodeRef{}, fmt.Errorf("%w: value of %q: %v", ErrMalformedQuery, key, err)
		}

		switch key {
		case keyDisplay, keyExport:
			if seen[key] {
				return models.NodeRef{}, fmt.Errorf("%w: multiple %s parameters not allowed", ErrDuplicateParameter, key)
			}
			seen[key] = true
			if value == "" {
				continue
			}
			if key == keyDisplay {
				d := models.DisplayType(value)
				if !d.Valid() {
					return models.NodeRef{}, fmt.Errorf("%w: display %q: must be one of: %s", ErrInvalidValue, value, joinEnum(models.DisplayTypes))
				}
				ref.Display = d
			} else {
				e := models.ExportHint(value)
				if !e.Valid() {
					return models.NodeRef{}, fmt.Errorf("%w: export %q: must be one of: %s", ErrInvalidValue, value, joinEnum(models.ExportHints))
				}
				ref.Export = e
			}
		default:
			if ref.Extra == nil {
				ref.Extra = make(map[string]models.ParamValue)
			}
			if value == "" {
				ref.Extra[key] = models.FlagParam()
			} else {
				ref.Extra[key] = models.StringParam(value)
			}
		}
	}
	return ref, nil
}

// Format encodes ref as a node URL. Parse(Format(ref)) equals ref for every
// valid ref.
func Format(ref models.NodeRef) string {
	var q []string
	if ref.Display != "" {
		q = append(q, keyDisplay+"="+url.QueryEscape(string(ref.Display)))
	}
	if ref.Export != "" {
		q = append(q, keyExport+"="+url.QueryEscape(string(ref.Export)))
	}
	for _, k := range ref.ExtraKeys() {
		v := ref.Extra[k]
		if v.Flag || v.Str == "" {
			q = append(q, url.QueryEscape(k))
			continue
		}
		q = append(q, url.QueryEscape(k)+"="+url.QueryEscape(v.Str))
	}
	if len(q) == 0 {
		return Scheme + ref.ID
	}
	return Scheme + ref.ID + "?" + strings.Join(q, "&")
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
