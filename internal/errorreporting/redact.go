package errorreporting

import (
	"path"
	"strings"

	"github.com/getsentry/sentry-go"
)

// packageDirs mark third-party code. An absolute path through one of them
// keeps only the part from that directory on.
var packageDirs = []string{"pkg/mod", "site-packages", "dist-packages"}

// StripSensitiveData removes local absolute paths from every stack frame of
// event, in place, and returns it. Both exception and thread stacktraces are
// covered; the latter carry the stack of panics with a non-error value.
// Function, module and line information is kept. Applying it twice has the
// same effect as once.
func StripSensitiveData(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	for i := range event.Exception {
		stripStacktrace(event.Exception[i].Stacktrace)
	}
	for i := range event.Threads {
		stripStacktrace(event.Threads[i].Stacktrace)
	}
	return event
}

func stripStacktrace(st *sentry.Stacktrace) {
	if st == nil {
		return
	}
	for i := range st.Frames {
		frame := &st.Frames[i]
		frame.Filename = relativeFilename(frame.Filename, frame.AbsPath, frame.Module)
		frame.AbsPath = ""
	}
}

// StripSensitiveDataFromMap is StripSensitiveData for a decoded JSON report.
// Reports without an exception.values[].stacktrace.frames[] shape are
// returned unchanged; unrelated keys are never touched.
func StripSensitiveDataFromMap(event map[string]interface{}) map[string]interface{} {
	exception, ok := event["exception"].(map[string]interface{})
	if !ok {
		return event
	}
	values, ok := exception["values"].([]interface{})
	if !ok {
		return event
	}
	for _, v := range values {
		value, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		stacktrace, ok := value["stacktrace"].(map[string]interface{})
		if !ok {
			continue
		}
		frames, ok := stacktrace["frames"].([]interface{})
		if !ok {
			continue
		}
		for _, f := range frames {
			frame, ok := f.(map[string]interface{})
			if !ok {
				continue
			}
			absPath, _ := frame["abs_path"].(string)
			if filename, ok := frame["filename"].(string); ok || absPath != "" {
				module, _ := frame["module"].(string)
				frame["filename"] = relativeFilename(filename, absPath, module)
			}
			if _, ok := frame["abs_path"]; ok {
				frame["abs_path"] = ""
			}
		}
	}
	return event
}

// relativeFilename derives a filename that does not reveal the local layout.
func relativeFilename(filename, absPath, module string) string {
	if filename == "" && absPath != "" {
		filename = absPath
	}
	if filename == "" {
		return ""
	}

	slashed := strings.ReplaceAll(filename, `\`, "/")
	if !isAbs(slashed) {
		return filename
	}
	for _, marker := range packageDirs {
		if idx := strings.LastIndex(slashed, "/"+marker+"/"); idx >= 0 {
			return path.Join(marker, slashed[idx+len(marker)+2:])
		}
	}

	base := path.Base(slashed)
	if module != "" {
		return path.Join(module, base)
	}
	return base
}

// isAbs accepts unix and windows style absolute paths regardless of GOOS.
func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && p[2] == '/'
}
