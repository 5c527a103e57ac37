package handler

import (
	"bytes"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// The decision endpoint is the one unauthenticated surface of the system:
// a supervisor clicking a mail link has no session to redirect to, so every
// outcome, success or failure, renders a self-contained HTML page.

var decisionPageTmpl = template.Must(template.New("decision").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; max-width: 40rem; margin: 4rem auto; padding: 0 1rem; color: #222; }
    .card { border: 1px solid #ddd; border-radius: 8px; padding: 2rem; }
    h1 { font-size: 1.3rem; }
    .ok { color: #1a7f37; }
    .warn { color: #9a6700; }
    .err { color: #cf222e; }
    textarea { width: 100%; min-height: 6rem; margin: 0.5rem 0; }
    button { padding: 0.5rem 1.5rem; }
  </style>
</head>
<body>
  <div class="card">
    <h1 class="{{.Tone}}">{{.Title}}</h1>
    <p>{{.Message}}</p>
    {{if .ShowForm}}
    <form method="POST" action="{{.FormAction}}">
      <label for="comment">Please describe what the student should change:</label>
      <textarea id="comment" name="comment" required></textarea>
      <button type="submit">Send feedback</button>
    </form>
    {{end}}
    {{if .Detail}}<p><small>{{.Detail}}</small></p>{{end}}
  </div>
</body>
</html>`))

type decisionPage struct {
	Title      string
	Message    string
	Tone       string // ok, warn, err
	Detail     string
	ShowForm   bool
	FormAction string
}

func renderDecisionPage(c *gin.Context, status int, page decisionPage) {
	var buf bytes.Buffer
	if err := decisionPageTmpl.Execute(&buf, page); err != nil {
		log.Printf("WARNING: failed to render decision page: %v", err)
		c.String(http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
