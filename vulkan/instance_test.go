package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
)

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

func TestInstanceExtensions(t *testing.T) {
	sdl := []string{"VK_KHR_surface", "VK_KHR_xlib_surface"}

	extensions, portability, err := instanceExtensions(set(append(sdl, ext_debug_utils.ExtensionName)...), sdl, true)
	if err != nil {
		t.Fatalf("instanceExtensions: %v", err)
	}
	if portability || len(extensions) != 3 || extensions[2] != ext_debug_utils.ExtensionName {
		t.Errorf("with validation\nhave %v portability %v\nwant window extensions and debug utils", extensions, portability)
	}

	extensions, portability, err = instanceExtensions(set(append(sdl, khr_portability_enumeration.ExtensionName)...), sdl, false)
	if err != nil {
		t.Fatalf("instanceExtensions: %v", err)
	}
	if !portability || extensions[len(extensions)-1] != khr_portability_enumeration.ExtensionName {
		t.Errorf("with portability\nhave %v portability %v\nwant portability enumeration enabled", extensions, portability)
	}

	for _, tc := range []struct {
		name       string
		available  map[string]struct{}
		validation bool
	}{
		{"window extension", set("VK_KHR_surface"), false},
		{"debug utils", set(sdl...), true},
	} {
		_, _, err := instanceExtensions(tc.available, sdl, tc.validation)
		if !errors.Is(err, ErrMissingExtension) {
			t.Errorf("missing %s\nhave %v\nwant ErrMissingExtension", tc.name, err)
		}
	}
}

func TestDebugCallback(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	callback := debugCallback(logger)

	for _, tc := range []struct {
		severity ext_debug_utils.DebugUtilsMessageSeverityFlags
		want     logrus.Level
	}{
		{ext_debug_utils.SeverityError, logrus.ErrorLevel},
		{ext_debug_utils.SeverityWarning, logrus.WarnLevel},
		{ext_debug_utils.SeverityInfo, logrus.DebugLevel},
		{ext_debug_utils.SeverityVerbose, logrus.DebugLevel},
	} {
		abort := callback(ext_debug_utils.TypeValidation, tc.severity, &ext_debug_utils.DebugUtilsMessengerCallbackData{Message: "message"})
		if abort {
			t.Errorf("%s: callback asked to abort", tc.severity)
		}

		entry := hook.LastEntry()
		if entry == nil || entry.Level != tc.want || entry.Message != "message" {
			t.Errorf("%s: logged\nhave %v\nwant %s entry", tc.severity, entry, tc.want)
			continue
		}
		if _, ok := entry.Data["severity"]; !ok {
			t.Errorf("%s: entry has no severity field", tc.severity)
		}
	}
}
