package uploads

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Extension returns the lowercased text after the final dot, or "".
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// AllowedFile reports whether filename carries an image extension we accept.
func AllowedFile(filename string) bool {
	return strings.Contains(filename, ".") && allowedExtensions[Extension(filename)]
}

// SecureFilename reduces filename to a flat ASCII name safe to store.
// It may return "".
func SecureFilename(filename string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), filename)
	if err != nil {
		folded = filename
	}
	for _, sep := range []string{"/", "\\"} {
		folded = strings.ReplaceAll(folded, sep, " ")
	}
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeChars.ReplaceAllString(folded, "")
	return strings.Trim(folded, "._")
}

// StoredName builds the name an upload is stored under:
// <seller>_<UTC timestamp>_<8 hex>_<sanitized original>.
func StoredName(sellerID int64, now time.Time, original string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	prefix := fmt.Sprintf("%d_%s_%s", sellerID, now.UTC().Format("20060102150405"), random)

	safe := SecureFilename(original)
	if !strings.Contains(safe, ".") || !AllowedFile(safe) {
		return prefix + "." + Extension(original)
	}
	return prefix + "_" + safe
}

// validName rejects names that could escape the storage root.
func validName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
