package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/bitmap/gpu"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"golang.org/x/sync/errgroup"
)

var requiredDeviceExtensions = []string{khr_swapchain.ExtensionName}

// queryCandidates describes every physical device against the window
// surface. Devices are queried concurrently; the result keeps enumeration
// order.
func (c *Context) queryCandidates(physicalDevices []core1_0.PhysicalDevice) ([]gpu.Candidate, error) {
	candidates := make([]gpu.Candidate, len(physicalDevices))

	var group errgroup.Group
	for i, physicalDevice := range physicalDevices {
		i, physicalDevice := i, physicalDevice
		group.Go(func() error {
			candidate, err := c.queryCandidate(physicalDevice)
			if err != nil {
				return errors.Wrapf(err, "query physical device %d", i)
			}
			candidate.Index = i
			candidates[i] = candidate
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (c *Context) queryCandidate(physicalDevice core1_0.PhysicalDevice) (gpu.Candidate, error) {
	var candidate gpu.Candidate

	properties, err := c.instanceDriver.GetPhysicalDeviceProperties(physicalDevice)
	if err != nil {
		return candidate, errors.Wrap(err, "properties")
	}
	candidate.Name = properties.DeviceName
	candidate.Type = properties.DeviceType
	candidate.CacheUUID = properties.PipelineCacheUUID

	for idx, family := range c.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(physicalDevice) {
		present, _, err := c.surfaceExtension.GetPhysicalDeviceSurfaceSupport(c.surface, physicalDevice, idx)
		if err != nil {
			return candidate, errors.Wrapf(err, "surface support of queue family %d", idx)
		}
		candidate.QueueFamilies = append(candidate.QueueFamilies, gpu.QueueFamily{
			Flags:   family.QueueFlags,
			Present: present,
		})
	}

	extensions, _, err := c.instanceDriver.EnumerateDeviceExtensionProperties(physicalDevice)
	if err != nil {
		return candidate, errors.Wrap(err, "device extensions")
	}
	candidate.Extensions = make(map[string]struct{}, len(extensions))
	for name := range extensions {
		candidate.Extensions[name] = struct{}{}
	}

	candidate.Capabilities, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(c.surface, physicalDevice)
	if err != nil {
		return candidate, errors.Wrap(err, "surface capabilities")
	}

	candidate.Formats, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceFormats(c.surface, physicalDevice)
	if err != nil {
		return candidate, errors.Wrap(err, "surface formats")
	}

	candidate.PresentModes, _, err = c.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(c.surface, physicalDevice)
	if err != nil {
		return candidate, errors.Wrap(err, "surface present modes")
	}

	return candidate, nil
}

func (c *Context) pickPhysicalDevice() error {
	physicalDevices, _, err := c.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	candidates, err := c.queryCandidates(physicalDevices)
	if err != nil {
		return err
	}

	c.device, err = gpu.SelectDevice(candidates, requiredDeviceExtensions)
	if err != nil {
		return err
	}

	c.families, err = gpu.FindQueueFamilies(c.device.QueueFamilies)
	if err != nil {
		return errors.Wrapf(err, "selected %s", c.device)
	}

	c.physicalDevice = physicalDevices[c.device.Index]
	c.memoryTypes = c.instanceDriver.GetPhysicalDeviceMemoryProperties(c.physicalDevice).MemoryTypes

	c.log.WithFields(logrus.Fields{
		"device":     c.device.Name,
		"type":       c.device.Type,
		"cache_uuid": c.device.CacheUUID,
		"graphics":   c.families.Graphics,
		"transfer":   c.families.Transfer,
		"present":    c.families.Present,
		"candidates": len(candidates),
	}).Info("selected physical device")
	return nil
}
