package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/records"
	"github.com/fadea/fadeclient/internal/session"
)

const (
	tsColumnWidth     = 32
	sensorColumnWidth = 10
	chartPanelHeight  = 5 // border + sparkline + stats + sensor label
)

const (
	filterLimit = iota
	filterUntil
)

type recordsState struct {
	table   table.Model
	version uint64
	sensors int
	query   session.SyncQuery
	sensor  int // sensor shown in the chart
	filter  form
	export  form
	width   int
	height  int
}

func newRecordsState(pageLimit int) recordsState {
	t := table.New(table.WithFocused(true))
	return recordsState{
		table:   t,
		version: ^uint64(0),
		query:   session.SyncQuery{Limit: pageLimit},
	}
}

func (r *recordsState) applyStyles(th Theme) {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(th.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(th.Accent)).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(th.SelectionText)).
		Background(lipgloss.Color(th.SelectionBg)).
		Bold(false)
	r.table.SetStyles(s)
}

func (r *recordsState) resize(width, height int) {
	r.width, r.height = width, height
	r.table.SetWidth(width)
	r.table.SetHeight(max(height-chartPanelHeight-1, 3))
	r.filter.SetWidth(width - 30)
	r.export.SetWidth(width - 30)
}

// recordColumns builds the ts + s1..sN header.
func recordColumns(sensors int) []table.Column {
	cols := make([]table.Column, 0, sensors+1)
	cols = append(cols, table.Column{Title: "ts", Width: tsColumnWidth})
	for i := 1; i <= sensors; i++ {
		cols = append(cols, table.Column{Title: "s" + strconv.Itoa(i), Width: sensorColumnWidth})
	}
	return cols
}

// recordRows renders records newest first. Every row has exactly
// sensors+1 cells; short records are padded with blanks.
func recordRows(recs []fadeapi.Record, sensors int) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		row := make(table.Row, sensors+1)
		row[0] = rec.Timestamp
		for s := 0; s < sensors; s++ {
			row[s+1] = rec.FormatValue(s)
		}
		rows = append(rows, row)
	}
	return rows
}

// sensorSeries returns sensor i across recs in ascending time order.
func sensorSeries(recs []fadeapi.Record, i int) []*float64 {
	out := make([]*float64, len(recs))
	for j, rec := range recs {
		if i < len(rec.SensorValues) {
			out[j] = rec.SensorValues[i]
		}
	}
	return out
}

// refreshRecordsTable rebuilds the table when the cache changed or force is set.
func (m *Model) refreshRecordsTable(force bool) {
	if m.sess == nil {
		return
	}
	cache := m.sess.Cache()
	v := cache.Version()
	if !force && v == m.records.version {
		return
	}
	recs := cache.Records()
	sensors := cache.Width()
	cursor := m.records.table.Cursor()

	// Rows must never have more cells than there are columns.
	m.records.table.SetRows(nil)
	m.records.table.SetColumns(recordColumns(sensors))
	m.records.table.SetRows(recordRows(recs, sensors))
	if cursor >= len(recs) {
		cursor = max(len(recs)-1, 0)
	}
	m.records.table.SetCursor(cursor)

	m.records.version = v
	m.records.sensors = sensors
	if m.records.sensor >= sensors {
		m.records.sensor = 0
	}
}

type syncMsg struct {
	sess   *session.Session
	res    records.MergeResult
	reload bool
	err    error
}

func (m Model) syncCmd(reload bool) tea.Cmd {
	sess, q := m.sess, m.records.query
	if sess == nil {
		return nil
	}
	return runTask(m.pool, m.ctx, "sync records", func(ctx context.Context) (records.MergeResult, error) {
		if reload {
			return sess.Reload(ctx, q)
		}
		return sess.Sync(ctx, q)
	}, func(res records.MergeResult, err error) tea.Msg {
		return syncMsg{sess: sess, res: res, reload: reload, err: err}
	})
}

func (m Model) handleSync(msg syncMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.sess) {
		return m, nil
	}
	m.end()
	if msg.err != nil {
		m.setError("refresh", msg.err)
		return m, nil
	}
	m.refreshRecordsTable(msg.reload)
	verb := "Refreshed"
	if msg.reload {
		verb = "Reloaded"
	}
	m.setFlash(flashSuccess, "%s: %s, %d cached", verb, summarizeMerge(msg.res), m.sess.Cache().Len())
	return m, nil
}

type exportMsg struct {
	sess  *session.Session
	path  string
	bytes int
	err   error
}

func (m Model) exportCmd(path string) tea.Cmd {
	sess := m.sess
	return runTask(m.pool, m.ctx, "export csv", func(ctx context.Context) (int, error) {
		return sess.ExportCSV(ctx, path)
	}, func(n int, err error) tea.Msg {
		return exportMsg{sess: sess, path: path, bytes: n, err: err}
	})
}

func (m Model) handleExport(msg exportMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.sess) {
		return m, nil
	}
	m.end()
	if msg.err != nil {
		m.setError("export", msg.err)
		return m, nil
	}
	m.setFlash(flashSuccess, "Exported %d bytes to %s", msg.bytes, msg.path)
	return m, nil
}

type deleteMsg struct {
	sess *session.Session
	info fadeapi.Info
	err  error
}

func (m Model) deleteCmd() tea.Cmd {
	sess := m.sess
	return runTask(m.pool, m.ctx, "delete records", func(ctx context.Context) (fadeapi.Info, error) {
		return sess.DeleteAll(ctx)
	}, func(info fadeapi.Info, err error) tea.Msg {
		return deleteMsg{sess: sess, info: info, err: err}
	})
}

func (m Model) handleDelete(msg deleteMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.sess) {
		return m, nil
	}
	m.end()
	if msg.err != nil {
		m.setError("delete", msg.err)
		return m, nil
	}
	m.refreshRecordsTable(true)
	m.setFlash(flashWarning, "Deleted all records on the server%s", infoSuffix(msg.info))
	return m, nil
}

// infoSuffix renders a deletion summary such as {"deleted": 12}.
func infoSuffix(info fadeapi.Info) string {
	if len(info) == 0 {
		return ""
	}
	for _, k := range []string{"deleted", "count", "message", "detail"} {
		if v, ok := info[k]; ok {
			return fmt.Sprintf(" (%s: %v)", k, v)
		}
	}
	return ""
}

func (m Model) handleRecordsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case keyIs(msg, m.keys.Refresh):
		m.begin()
		return m, m.syncCmd(false)
	case keyIs(msg, m.keys.Reload):
		m.begin()
		return m, m.syncCmd(true)
	case keyIs(msg, m.keys.Filter):
		m.records.filter = newFilterForm(m.records.query)
		m.records.filter.SetWidth(m.width - 30)
		m.mode = modeFilter
		cmd := m.records.filter.Focus(filterLimit)
		return m, cmd
	case keyIs(msg, m.keys.Export):
		m.records.export = newForm(formField{label: "File", value: defaultExportName(time.Now())})
		m.records.export.SetWidth(m.width - 30)
		m.mode = modeExport
		cmd := m.records.export.Focus(0)
		return m, cmd
	case keyIs(msg, m.keys.DeleteAll):
		m.mode = modeConfirmDelete
		return m, nil
	case keyIs(msg, m.keys.PrevSensor):
		if m.records.sensors > 0 {
			m.records.sensor = (m.records.sensor + m.records.sensors - 1) % m.records.sensors
		}
		return m, nil
	case keyIs(msg, m.keys.NextSensor):
		if m.records.sensors > 0 {
			m.records.sensor = (m.records.sensor + 1) % m.records.sensors
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.records.table, cmd = m.records.table.Update(msg)
	return m, cmd
}

func newFilterForm(q session.SyncQuery) form {
	return newForm(
		formField{label: "Limit", value: strconv.Itoa(q.Limit), charLimit: 6},
		formField{label: "Until", value: q.Until, placeholder: "2024-01-31T23:59:59Z (blank for none)"},
	)
}

// parseFilter validates the filter form values.
func parseFilter(limitText, until string) (session.SyncQuery, error) {
	limit, err := strconv.Atoi(strings.TrimSpace(limitText))
	if err != nil || limit <= 0 {
		return session.SyncQuery{}, fmt.Errorf("limit must be a positive number")
	}
	until = strings.TrimSpace(until)
	if until != "" {
		if _, err := records.ParseTimestamp(until); err != nil {
			return session.SyncQuery{}, fmt.Errorf("until is not a valid timestamp")
		}
	}
	return session.SyncQuery{Limit: limit, Until: until}, nil
}

func defaultExportName(now time.Time) string {
	return "fadeapi_records_" + now.Format("20060102_150405") + ".csv"
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		return m, nil
	case "enter":
		q, err := parseFilter(m.records.filter.Value(filterLimit), m.records.filter.Value(filterUntil))
		if err != nil {
			m.records.filter.err = err.Error()
			return m, nil
		}
		m.records.query = q
		m.mode = modeNormal
		m.begin()
		return m, m.syncCmd(true)
	}
	if cmd, ok := m.records.filter.handleNav(msg); ok {
		return m, cmd
	}
	cmd := m.records.filter.Update(msg)
	return m, cmd
}

func (m Model) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		return m, nil
	case "enter":
		path := m.records.export.Value(0)
		if path == "" {
			m.records.export.err = "file name is required"
			return m, nil
		}
		if !strings.HasSuffix(strings.ToLower(path), ".csv") {
			path += ".csv"
		}
		m.mode = modeNormal
		m.begin()
		return m, m.exportCmd(path)
	}
	cmd := m.records.export.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	switch msg.String() {
	case "y", "Y":
		m.begin()
		return m, m.deleteCmd()
	}
	m.setFlash(flashInfo, "Delete cancelled")
	return m, nil
}

func (m Model) renderRecords() string {
	styles := m.theme.Styles()
	h := m.contentHeight()

	switch m.mode {
	case modeFilter:
		return styles.FocusPanel.Render(m.records.filter.View(styles, "Filter records"))
	case modeExport:
		return styles.FocusPanel.Render(m.records.export.View(styles, "Export server records to CSV"))
	case modeConfirmDelete:
		body := styles.DangerText.Render("Delete ALL records on the server?") + "\n\n" +
			styles.Text.Render("This cannot be undone. Press y to confirm, any other key to cancel.")
		return styles.FocusPanel.Render(body)
	}

	if m.sess == nil || m.sess.Cache().Len() == 0 {
		empty := styles.MutedText.Render("No records cached. Press r to fetch, f to change the limit/until filter.")
		return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, empty)
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.records.table.View(), m.renderChartPanel())
}

func (m Model) renderChartPanel() string {
	styles := m.theme.Styles()
	width := max(m.width-4, 10)
	if m.records.sensors == 0 {
		return styles.Panel.Width(width).Render(styles.MutedText.Render("no sensor values"))
	}
	recs := m.sess.Cache().Records()
	series := sensorSeries(recs, m.records.sensor)
	line := sparkline(series, width-2)
	stats := seriesStats(series)

	label := fmt.Sprintf("s%d of %d   [ ] switch sensor   %s", m.records.sensor+1, m.records.sensors, describeQuery(m.records.query))
	color := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.ChartColor(m.records.sensor)))
	body := styles.AccentText.Render(label) + "\n" +
		color.Render(line) + "\n" +
		styles.MutedText.Render(stats.String())
	return styles.Panel.Width(width).Render(body)
}

func describeQuery(q session.SyncQuery) string {
	s := fmt.Sprintf("limit %d", q.Limit)
	if q.Until != "" {
		s += " until " + q.Until
	}
	return s
}
