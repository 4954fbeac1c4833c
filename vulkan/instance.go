package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

var (
	// ErrMissingExtension is returned when the loader lacks an instance
	// extension the window system needs.
	ErrMissingExtension = errors.New("vulkan: missing instance extension")
	// ErrMissingLayer is returned when validation is requested but the
	// Khronos validation layer is not installed.
	ErrMissingLayer = errors.New("vulkan: missing layer")
)

// instanceExtensions returns the extensions to enable and whether portability
// enumeration is among them. Every extension in required must be available.
func instanceExtensions(available map[string]struct{}, required []string, validation bool) ([]string, bool, error) {
	var extensions []string
	for _, ext := range required {
		if _, ok := available[ext]; !ok {
			return nil, false, errors.Wrap(ErrMissingExtension, ext)
		}
		extensions = append(extensions, ext)
	}

	if validation {
		if _, ok := available[ext_debug_utils.ExtensionName]; !ok {
			return nil, false, errors.Wrap(ErrMissingExtension, ext_debug_utils.ExtensionName)
		}
		extensions = append(extensions, ext_debug_utils.ExtensionName)
	}

	_, portability := available[khr_portability_enumeration.ExtensionName]
	if portability {
		extensions = append(extensions, khr_portability_enumeration.ExtensionName)
	}

	return extensions, portability, nil
}

func (c *Context) createInstance(opts Options) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensionProps, _, err := c.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}
	available := make(map[string]struct{}, len(extensionProps))
	for name := range extensionProps {
		available[name] = struct{}{}
	}

	var portability bool
	instanceOptions.EnabledExtensionNames, portability, err = instanceExtensions(available, c.window.VulkanGetInstanceExtensions(), opts.Validation)
	if err != nil {
		return err
	}
	if portability {
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if opts.Validation {
		layers, _, err := c.globalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}
		if _, ok := layers[validationLayer]; !ok {
			return errors.WithHint(errors.Wrap(ErrMissingLayer, validationLayer), "install the LunarG Vulkan SDK or run with --no-validation")
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayer)

		// Covers messages from instance creation and destruction.
		instanceOptions.Next = c.debugMessengerOptions()
	}

	c.instanceDriver, _, err = c.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "create instance")
	}

	c.log.WithFields(logrus.Fields{
		"extensions": instanceOptions.EnabledExtensionNames,
		"layers":     instanceOptions.EnabledLayerNames,
	}).Debug("created instance")
	return nil
}

func (c *Context) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    debugCallback(c.log),
	}
}

func (c *Context) setupDebugMessenger() error {
	var err error
	c.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	c.debugMessenger, _, err = c.debugDriver.CreateDebugUtilsMessenger(nil, c.debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "create debug messenger")
	}

	return nil
}
