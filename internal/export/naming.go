package export

import (
	"path"
	"regexp"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`/(\d{8})/`)

// TextureDate returns the first /yyyyMMdd/ path segment of a texture path or URL,
// or now's date when there is none.
func TextureDate(texturePath string, now time.Time) string {
	if m := datePattern.FindStringSubmatch(filepathToSlash(texturePath)); m != nil {
		return m[1]
	}
	return now.Format("20060102")
}

// ModelName returns the model file name without directory or extension.
func ModelName(modelPath string) string {
	base := path.Base(filepathToSlash(modelPath))
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// OutputName returns <model>_<date>_<yyyyMMdd_HHmmss>.glb.
func OutputName(model, date string, now time.Time) string {
	return model + "_" + date + "_" + now.Format("20060102_150405") + ".glb"
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
