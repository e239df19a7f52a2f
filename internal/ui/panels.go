package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/usbwatch/usbwatch/hotplug"
)

// Panel identifiers
type Panel int

const (
	PanelDevices Panel = iota
	PanelLog
)

func (p Panel) String() string {
	switch p {
	case PanelDevices:
		return "Devices"
	case PanelLog:
		return "Log"
	default:
		return "Unknown"
	}
}

// DevicePanel renders the currently connected devices.
type DevicePanel struct {
	devices  []hotplug.DeviceInfo
	selected int
	width    int
	height   int
}

// NewDevicePanel creates an empty device panel.
func NewDevicePanel() *DevicePanel {
	return &DevicePanel{}
}

// Add records a newly connected device.
func (p *DevicePanel) Add(info hotplug.DeviceInfo) {
	p.devices = append(p.devices, info)
}

// Remove drops the device with the given id. It reports whether the device
// was known; a removal for a device that never produced an arrival (for
// example one connected before the watch started) is not an error.
func (p *DevicePanel) Remove(id hotplug.DeviceID) bool {
	for i, d := range p.devices {
		if d.ID == id {
			p.devices = append(p.devices[:i], p.devices[i+1:]...)
			if p.selected >= len(p.devices) && p.selected > 0 {
				p.selected--
			}
			return true
		}
	}
	return false
}

// Count returns the number of connected devices.
func (p *DevicePanel) Count() int {
	return len(p.devices)
}

// Selected returns the selected device, or nil when the panel is empty.
func (p *DevicePanel) Selected() *hotplug.DeviceInfo {
	if len(p.devices) == 0 {
		return nil
	}
	return &p.devices[p.selected]
}

// MoveUp moves selection up.
func (p *DevicePanel) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

// MoveDown moves selection down.
func (p *DevicePanel) MoveDown() {
	if p.selected < len(p.devices)-1 {
		p.selected++
	}
}

// SetSize sets the panel dimensions.
func (p *DevicePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the device panel content.
func (p *DevicePanel) View() string {
	if len(p.devices) == 0 {
		return DimStyle.Render("  No devices seen yet")
	}

	var lines []string
	for i, d := range p.devices {
		prefix := "  "
		if i == p.selected {
			prefix = "> "
		}

		line := prefix + SuccessStyle.Render(StatusConnected) + " " + d.String()
		if i == p.selected {
			line = SelectedStyle.Render(prefix + StatusConnected + " " + d.String())
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// LogEntry represents a log message
type LogEntry struct {
	Time    time.Time
	Message string
	Level   LogLevel
}

// LogLevel for log entries
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogSuccess
	LogWarning
	LogError
)

// maxLogEntries bounds the log panel's memory.
const maxLogEntries = 100

// LogPanel renders the event log.
type LogPanel struct {
	entries []LogEntry
	width   int
	height  int
}

// NewLogPanel creates a new log panel.
func NewLogPanel() *LogPanel {
	return &LogPanel{}
}

// Add adds a log entry.
func (p *LogPanel) Add(level LogLevel, msg string) {
	p.entries = append(p.entries, LogEntry{
		Time:    time.Now(),
		Message: msg,
		Level:   level,
	})
	if len(p.entries) > maxLogEntries {
		p.entries = p.entries[len(p.entries)-maxLogEntries:]
	}
}

// Clear clears all entries.
func (p *LogPanel) Clear() {
	p.entries = nil
}

// SetSize sets the panel dimensions.
func (p *LogPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the log panel content.
func (p *LogPanel) View() string {
	if len(p.entries) == 0 {
		return DimStyle.Render("  No events yet")
	}

	maxVisible := p.height - 2
	if maxVisible < 1 {
		maxVisible = 10
	}

	start := 0
	if len(p.entries) > maxVisible {
		start = len(p.entries) - maxVisible
	}

	var lines []string
	for _, entry := range p.entries[start:] {
		timestamp := DimStyle.Render(entry.Time.Format("15:04:05"))

		var msgStyle lipgloss.Style
		switch entry.Level {
		case LogSuccess:
			msgStyle = SuccessStyle
		case LogWarning:
			msgStyle = WarningStyle
		case LogError:
			msgStyle = ErrorStyle
		default:
			msgStyle = lipgloss.NewStyle().Foreground(ColorFg)
		}

		msg := entry.Message
		maxMsgLen := p.width - 12
		if maxMsgLen > 0 && len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen-3] + "..."
		}

		lines = append(lines, timestamp+"  "+msgStyle.Render(msg))
	}

	return strings.Join(lines, "\n")
}

// DetailOverlay renders the selected device's full descriptor in a centered
// box.
type DetailOverlay struct {
	width  int
	height int
	device hotplug.DeviceInfo
}

// NewDetailOverlay creates an overlay for the given device.
func NewDetailOverlay(device hotplug.DeviceInfo) *DetailOverlay {
	return &DetailOverlay{device: device}
}

// SetSize sets overlay dimensions.
func (o *DetailOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// View renders the overlay.
func (o *DetailOverlay) View() string {
	d := o.device

	var lines []string
	lines = append(lines, TitleStyle.Render("DEVICE DETAILS"))
	lines = append(lines, "")
	lines = append(lines, o.fieldLine("Product", d.Product))
	lines = append(lines, o.fieldLine("Manufacturer", d.Manufacturer))
	lines = append(lines, o.fieldLine("Serial", d.SerialNumber))
	lines = append(lines, o.fieldLine("Vendor ID", fmt.Sprintf("%04x", d.VendorID)))
	lines = append(lines, o.fieldLine("Product ID", fmt.Sprintf("%04x", d.ProductID)))
	lines = append(lines, o.fieldLine("Class", fmt.Sprintf("%02x", d.DeviceClass)))
	if d.Bus != 0 || d.Address != 0 {
		lines = append(lines, o.fieldLine("Bus/Addr", fmt.Sprintf("%d/%d", d.Bus, d.Address)))
	}
	lines = append(lines, o.fieldLine("Speed", d.Speed))
	lines = append(lines, o.fieldLine("Registry ID", d.ID.String()))
	lines = append(lines, "")
	lines = append(lines, DimStyle.Render("Esc to close"))

	return renderCenteredBox(strings.Join(lines, "\n"), o.width, o.height)
}

func (o *DetailOverlay) fieldLine(name, value string) string {
	if value == "" {
		value = DimStyle.Render("-")
	}
	nameStyle := lipgloss.NewStyle().
		Foreground(ColorCyan).
		Width(14)
	return nameStyle.Render(name) + value
}

// renderCenteredBox draws content in a bordered box centered on screen.
func renderCenteredBox(content string, width, height int) string {
	boxWidth := 50
	if boxWidth > width-10 {
		boxWidth = width - 10
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPurple).
		Padding(1, 2).
		Width(boxWidth)

	box := boxStyle.Render(content)

	boxHeight := lipgloss.Height(box)
	topPadding := (height - boxHeight) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	leftPadding := (width - boxWidth - 4) / 2
	if leftPadding < 0 {
		leftPadding = 0
	}

	var lines []string
	for i := 0; i < topPadding; i++ {
		lines = append(lines, "")
	}
	for _, line := range strings.Split(box, "\n") {
		lines = append(lines, strings.Repeat(" ", leftPadding)+line)
	}

	return strings.Join(lines, "\n")
}
