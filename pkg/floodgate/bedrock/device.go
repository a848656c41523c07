package bedrock

import "strconv"

// DeviceOS is the platform a Bedrock client runs on.
// See https://github.com/GeyserMC/Geyser/blob/master/common/src/main/java/org/geysermc/floodgate/util/DeviceOs.java
type DeviceOS int

// DeviceOS constants
const (
	DeviceUnknown DeviceOS = iota
	DeviceAndroid
	DeviceIOS
	DeviceMacOS
	DeviceAmazon
	DeviceGearVR
	DeviceHololens // Deprecated
	DeviceWindowsUWP
	DeviceWindowsX86
	DeviceDedicated
	DeviceAppleTV     // Deprecated
	DevicePlayStation // All PlayStation platforms
	DeviceSwitch
	DeviceXbox
	DeviceWindowsPhone // Deprecated
	DeviceLinux
)

var deviceNames = [...]string{
	DeviceUnknown:      "Unknown",
	DeviceAndroid:      "Android",
	DeviceIOS:          "iOS",
	DeviceMacOS:        "macOS",
	DeviceAmazon:       "Amazon",
	DeviceGearVR:       "Gear VR",
	DeviceHololens:     "Hololens",
	DeviceWindowsUWP:   "Windows",
	DeviceWindowsX86:   "Windows x86",
	DeviceDedicated:    "Dedicated",
	DeviceAppleTV:      "Apple TV",
	DevicePlayStation:  "PlayStation",
	DeviceSwitch:       "Switch",
	DeviceXbox:         "Xbox",
	DeviceWindowsPhone: "Windows Phone",
	DeviceLinux:        "Linux",
}

// DeviceOSFromID returns the DeviceOS with the given id.
// Unknown ids map to DeviceUnknown so newer clients can still join.
func DeviceOSFromID(id int) DeviceOS {
	if id < 0 || id >= len(deviceNames) {
		return DeviceUnknown
	}
	return DeviceOS(id)
}

func (d DeviceOS) String() string {
	if d < 0 || int(d) >= len(deviceNames) {
		return "DeviceOS(" + strconv.Itoa(int(d)) + ")"
	}
	return deviceNames[d]
}

// IsConsole returns true if the player is using a console device.
func (d DeviceOS) IsConsole() bool {
	return d == DeviceSwitch || d == DeviceXbox || d == DevicePlayStation
}

// IsMobile returns true if the player is using a mobile device.
func (d DeviceOS) IsMobile() bool {
	switch d {
	case DeviceAndroid, DeviceIOS, DeviceAmazon, DeviceWindowsPhone:
		return true
	}
	return false
}

// IsDesktop returns true if the player is using a desktop/PC device.
func (d DeviceOS) IsDesktop() bool {
	switch d {
	case DeviceWindowsUWP, DeviceWindowsX86, DeviceMacOS, DeviceLinux:
		return true
	}
	return false
}

// UIProfile is the UI layout the Bedrock client uses.
type UIProfile int

const (
	UIProfileClassic UIProfile = iota
	UIProfilePocket
)

// UIProfileFromID returns the UIProfile with the given id, UIProfileClassic if unknown.
func UIProfileFromID(id int) UIProfile {
	if id == int(UIProfilePocket) {
		return UIProfilePocket
	}
	return UIProfileClassic
}

func (p UIProfile) String() string {
	if p == UIProfilePocket {
		return "Pocket"
	}
	return "Classic"
}

// InputMode is the current input method of the Bedrock client.
type InputMode int

const (
	InputUnknown InputMode = iota
	InputKeyboardMouse
	InputTouch
	InputController
	InputVR
)

var inputNames = [...]string{
	InputUnknown:       "Unknown",
	InputKeyboardMouse: "Keyboard & Mouse",
	InputTouch:         "Touch",
	InputController:    "Controller",
	InputVR:            "VR",
}

// InputModeFromID returns the InputMode with the given id, InputUnknown if unknown.
func InputModeFromID(id int) InputMode {
	if id < 0 || id >= len(inputNames) {
		return InputUnknown
	}
	return InputMode(id)
}

func (m InputMode) String() string {
	if m < 0 || int(m) >= len(inputNames) {
		return "InputMode(" + strconv.Itoa(int(m)) + ")"
	}
	return inputNames[m]
}
