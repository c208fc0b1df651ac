// Package udev finds tagged hardware and reports hot-plug events.
package udev

import (
	"strings"
)

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

type Device struct {
	// SysPath is the absolute sysfs directory of the device.
	SysPath string
	// DevPath is SysPath relative to the sysfs mount, as the kernel reports it.
	DevPath string
	Tags    []string
}

func (d Device) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type Event struct {
	Action Action
	Device Device
}

// ParseTags splits a udev TAGS property (":a:b:") into its tags.
func ParseTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ":") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
