// Copyright 2026 The Water Controller Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"fmt"
	"io"
	"sort"

	"go.bug.st/serial/enumerator"
)

// Device describes a serial port visible to the OS.
type Device struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListDevices enumerates the serial ports on this machine, sorted by
// name.
func ListDevices() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}
	devices := make([]Device, 0, len(ports))
	for _, port := range ports {
		devices = append(devices, Device{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// WriteDevices prints devices one per line in the device-list format.
func WriteDevices(w io.Writer, devices []Device) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No serial ports found.")
		return err
	}
	for _, device := range devices {
		line := device.Name
		if device.IsUSB {
			line += fmt.Sprintf("  usb %s:%s", device.VID, device.PID)
			if device.SerialNumber != "" {
				line += "  serial=" + device.SerialNumber
			}
			if device.Product != "" {
				line += "  " + device.Product
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
