package vulkan

import (
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
)

func debugLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) logrus.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return logrus.ErrorLevel
	case severity&ext_debug_utils.SeverityWarning != 0:
		return logrus.WarnLevel
	case severity&ext_debug_utils.SeverityInfo != 0:
		return logrus.DebugLevel
	}
	return logrus.TraceLevel
}

// debugCallback routes validation messages to log. It never asks the driver
// to abort the call that triggered the message.
func debugCallback(log logrus.FieldLogger) func(ext_debug_utils.DebugUtilsMessageTypeFlags, ext_debug_utils.DebugUtilsMessageSeverityFlags, *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	return func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
		entry := log.WithFields(logrus.Fields{
			"severity": severity.String(),
			"type":     msgType.String(),
		})

		switch debugLevel(severity) {
		case logrus.ErrorLevel:
			entry.Error(data.Message)
		case logrus.WarnLevel:
			entry.Warn(data.Message)
		default:
			entry.Debug(data.Message)
		}
		return false
	}
}
