package tracking

import (
	"html/template"
	"net/http"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Email Tracking Dashboard</title>
	<style>
		body { font-family: Arial, sans-serif; max-width: 1000px; margin: 0 auto; padding: 20px; background: #f4f4f4; }
		.cards { display: flex; gap: 15px; margin-bottom: 25px; }
		.card { background: white; padding: 20px; border-radius: 8px; flex: 1; text-align: center; box-shadow: 0 2px 6px rgba(0,0,0,0.08); }
		.card h2 { margin: 0; font-size: 2em; color: #2c3e50; }
		.card p { margin: 5px 0 0; color: #777; }
		table { width: 100%; border-collapse: collapse; background: white; border-radius: 8px; overflow: hidden; }
		th, td { padding: 10px 12px; text-align: left; border-bottom: 1px solid #eee; }
		th { background: #2c3e50; color: white; }
		.yes { color: #2ecc71; font-weight: bold; }
		.no { color: #aaa; }
	</style>
</head>
<body>
	<h1>Email Tracking Dashboard</h1>
	<div class="cards">
		<div class="card"><h2>{{.Stats.TotalSent}}</h2><p>Sent</p></div>
		<div class="card"><h2>{{.Stats.TotalOpened}}</h2><p>Opened ({{printf "%.0f" .Stats.OpenRate}}%)</p></div>
		<div class="card"><h2>{{.Stats.TotalClicked}}</h2><p>Clicked ({{printf "%.0f" .Stats.ClickRate}}%)</p></div>
		<div class="card"><h2>{{.Stats.TotalBounced}}</h2><p>Bounced</p></div>
	</div>
	<table>
		<tr><th>Client</th><th>Email</th><th>Sent</th><th>Opened</th><th>Clicked</th><th>Bounced</th></tr>
		{{range .Entries}}
		<tr>
			<td>{{.ClientName}}</td>
			<td>{{.ClientEmail}}</td>
			<td>{{.SentAt.Format "2006-01-02 15:04"}}</td>
			<td>{{if .OpenedAt}}<span class="yes">{{.OpenCount}}x</span>{{else}}<span class="no">-</span>{{end}}</td>
			<td>{{if .ClickedAt}}<span class="yes">{{.ClickCount}}x</span>{{else}}<span class="no">-</span>{{end}}</td>
			<td>{{if .BouncedAt}}<span class="yes">yes</span>{{else}}<span class="no">-</span>{{end}}</td>
		</tr>
		{{end}}
	</table>
</body>
</html>
`))

// handleDashboard renders the HTML tracking report.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	entries, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "failed to load entries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, map[string]interface{}{
		"Stats":   stats,
		"Entries": entries,
	}); err != nil {
		s.logger.Error("failed to render dashboard", "error", err)
	}
}
