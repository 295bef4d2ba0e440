package naming

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"stocklib/internal/domain"
)

// contentTypeExtensions maps MIME types (parameters stripped) to file
// extensions for the document types the pipeline handles.
var contentTypeExtensions = map[string]string{
	"application/pdf":                  ".pdf",
	"application/vnd.ms-powerpoint":    ".ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/zip":              ".zip",
	"application/x-zip-compressed": ".zip",
	"text/csv":                     ".csv",
}

// ResolveExtension infers a file extension for a downloaded document.
// Resolution order reflects decreasing confidence: the server's explicit
// Content-Disposition filename, then the negotiated Content-Type, then
// the URL path, then a per-category default.
//
// headers is a narrow map view rather than a full response so that both
// real transport responses and synthetic stand-ins (e.g. a file landed
// by a browser session) satisfy it.
func ResolveExtension(headers map[string]string, rawURL string, category domain.Category) string {
	if ext := extensionFromDisposition(headerValue(headers, "Content-Disposition")); ext != "" {
		return ext
	}
	if ext := extensionFromContentType(headerValue(headers, "Content-Type")); ext != "" {
		return ext
	}
	if ext := extensionFromURL(rawURL); ext != "" {
		return ext
	}
	if category == domain.CategoryPresentation {
		return ".pptx"
	}
	return ".pdf"
}

// headerValue looks up a header in the map without assuming a
// canonical key spelling.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func extensionFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	// ParseMediaType decodes RFC 2231 filename* parameters into the
	// plain "filename" key.
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	filename := params["filename"]
	if filename == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}
	return boundedExt(path.Ext(filename))
}

func extensionFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	return contentTypeExtensions[contentType]
}

func extensionFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return boundedExt(path.Ext(parsed.Path))
}

// boundedExt accepts an extension (dot included) only when its length
// is strictly between 1 and 7: a bare "." and anything longer than six
// characters are discarded as noise.
func boundedExt(ext string) string {
	if len(ext) > 1 && len(ext) < 7 {
		return strings.ToLower(ext)
	}
	return ""
}
