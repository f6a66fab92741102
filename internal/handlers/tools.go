package handlers

import (
	"net/http"
)

// ToolsViewModel lists the available tools.
type ToolsViewModel struct {
	PageData
	Tools []Tool
}

// Tool is a link on the tools page.
type Tool struct {
	Name string
	Path string
}

var tools = []Tool{
	{"Download CSV", "/download_csv"},
	{"Download PDF", "/download_pdf"},
	{"Pie chart", "/pie_chart"},
	{"Bar graph", "/bar_graph"},
}

// Tools renders the tools page.
func (h *Handlers) Tools(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "tools.html", &ToolsViewModel{PageData: PageData{Title: "Tools"}, Tools: tools})
}

// ComingSoon answers routes that are not implemented yet.
func ComingSoon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Coming Soon"))
}

// Healthz reports whether the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
