package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/usbwatch/usbwatch/hotplug"
	"github.com/usbwatch/usbwatch/internal/config"
)

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	// State
	activePanel Panel
	showHelp    bool
	showDetail  bool

	// Panels
	devicePanel *DevicePanel
	logPanel    *LogPanel

	// Overlays
	helpOverlay   *HelpOverlay
	detailOverlay *DetailOverlay

	// Event source
	cfg    *config.Config
	stream *hotplug.Stream
	events <-chan hotplug.Event
}

// NewModel creates a new model consuming events from the given stream.
func NewModel(cfg *config.Config, stream *hotplug.Stream) *Model {
	return &Model{
		cfg:         cfg,
		stream:      stream,
		events:      stream.Events(),
		activePanel: PanelDevices,
		devicePanel: NewDevicePanel(),
		logPanel:    NewLogPanel(),
		helpOverlay: NewHelpOverlay(),
	}
}

// hotplugEventMsg wraps hotplug events
type hotplugEventMsg struct {
	event hotplug.Event
}

// streamClosedMsg reports that the event stream ended
type streamClosedMsg struct{}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	m.logPanel.Add(LogInfo, "Watching for USB devices")
	return m.listenForNextEvent()
}

// listenForNextEvent waits for the next event on the stream channel.
func (m *Model) listenForNextEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return hotplugEventMsg{event: event}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updatePanelSizes()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case hotplugEventMsg:
		m.handleHotplugEvent(msg.event)
		return m, m.listenForNextEvent()

	case streamClosedMsg:
		m.logPanel.Add(LogError, "Event stream closed")
		return m, nil
	}

	return m, nil
}

func (m *Model) handleHotplugEvent(event hotplug.Event) {
	switch event.Type {
	case hotplug.DeviceArrived:
		info := event.Info
		if info == nil {
			return
		}
		if !m.cfg.Filter.Match(info.VendorID, info.ProductID) {
			m.logPanel.Add(LogInfo, "Filtered: "+info.String())
			return
		}
		m.devicePanel.Add(*info)
		m.logPanel.Add(LogSuccess, "Connected: "+info.String())

	case hotplug.DeviceLeft:
		if m.devicePanel.Remove(event.ID) {
			m.logPanel.Add(LogWarning, "Disconnected: "+event.ID.String())
		}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		if !m.showDetail {
			m.showHelp = !m.showHelp
		}
		return m, nil
	case "esc":
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.showDetail {
			m.showDetail = false
			m.detailOverlay = nil
			return m, nil
		}
	}

	// Overlays block other keys
	if m.showHelp || m.showDetail {
		return m, nil
	}

	switch msg.String() {
	// Navigation
	case "up", "k":
		if m.activePanel == PanelDevices {
			m.devicePanel.MoveUp()
		}
	case "down", "j":
		if m.activePanel == PanelDevices {
			m.devicePanel.MoveDown()
		}
	case "tab":
		m.activePanel = (m.activePanel + 1) % 2
	case "1":
		m.activePanel = PanelDevices
	case "2":
		m.activePanel = PanelLog

	// Actions
	case "enter":
		if m.activePanel == PanelDevices {
			if d := m.devicePanel.Selected(); d != nil {
				m.detailOverlay = NewDetailOverlay(*d)
				m.detailOverlay.SetSize(m.width, m.height)
				m.showDetail = true
			}
		}
	case "c":
		if m.activePanel == PanelLog {
			m.logPanel.Clear()
		}
	}

	return m, nil
}

func (m *Model) updatePanelSizes() {
	contentHeight := m.height - 4

	leftWidth := m.width * 45 / 100
	rightWidth := m.width - leftWidth - 4

	m.devicePanel.SetSize(leftWidth, contentHeight)
	m.logPanel.SetSize(rightWidth, contentHeight)
	m.helpOverlay.SetSize(m.width, m.height)
	if m.detailOverlay != nil {
		m.detailOverlay.SetSize(m.width, m.height)
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.helpOverlay.View()
	}
	if m.showDetail && m.detailOverlay != nil {
		return m.detailOverlay.View()
	}

	var s strings.Builder

	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.renderPanels())
	s.WriteString("\n")
	s.WriteString(m.renderFooter())

	return s.String()
}

func (m *Model) renderHeader() string {
	title := TitleStyle.Render("USB WATCH")

	statusIcon := SuccessStyle.Render(StatusConnected)
	if m.devicePanel.Count() == 0 {
		statusIcon = DimStyle.Render(StatusDisconnected)
	}
	status := statusIcon + " " + formatInt(m.devicePanel.Count()) + " device(s)"

	leftPart := title
	rightPart := status
	spacing := m.width - lipgloss.Width(leftPart) - lipgloss.Width(rightPart) - 2
	if spacing < 1 {
		spacing = 1
	}

	headerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(m.width - 2)

	content := leftPart + strings.Repeat(" ", spacing) + rightPart
	return headerStyle.Render(content)
}

func (m *Model) renderPanels() string {
	leftWidth := m.width * 45 / 100
	rightWidth := m.width - leftWidth - 6

	contentHeight := m.height - 6

	deviceStyle := PanelStyle.Width(leftWidth).Height(contentHeight)
	if m.activePanel == PanelDevices {
		deviceStyle = ActivePanelStyle.Width(leftWidth).Height(contentHeight)
	}
	devicePanel := deviceStyle.Render(AccentStyle.Render(" Devices ") + "\n\n" + m.devicePanel.View())

	logStyle := PanelStyle.Width(rightWidth).Height(contentHeight)
	if m.activePanel == PanelLog {
		logStyle = ActivePanelStyle.Width(rightWidth).Height(contentHeight)
	}
	logPanel := logStyle.Render(AccentStyle.Render(" Log ") + "\n\n" + m.logPanel.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, devicePanel, logPanel)
}

func (m *Model) renderFooter() string {
	hints := []string{
		"j/k Navigate",
		"Tab Switch panel",
		"Enter Details",
	}
	if m.activePanel == PanelLog {
		hints = append(hints, "c Clear")
	}
	hints = append(hints, "q Quit")

	left := DimStyle.Render(strings.Join(hints, "   "))
	right := DimStyle.Render("? Help")

	spacing := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	return " " + left + strings.Repeat(" ", spacing) + right
}

func formatInt(n int) string {
	if n == 0 {
		return "0"
	}
	var result []byte
	for n > 0 {
		result = append([]byte{byte('0' + n%10)}, result...)
		n /= 10
	}
	return string(result)
}
