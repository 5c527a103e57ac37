package notification

import (
	"bytes"
	"html/template"
)

var requestTmpl = template.Must(template.New("request").Parse(`<html>
<body style="font-family: sans-serif">
  <p>Dear {{.ApproverName}},</p>
  <p>{{.StudentName}} has asked you to review {{len .Records}} work-log
  {{if eq (len .Records) 1}}entry{{else}}entries{{end}} ({{.RequestKind}} selection).</p>
  <table border="1" cellpadding="4" cellspacing="0">
    <tr><th>Date</th><th>Activity</th><th>Hours</th></tr>
    {{range .Records}}<tr><td>{{.WorkDate}}</td><td>{{.Activity}}</td><td>{{.Hours}}</td></tr>{{end}}
  </table>
  <p>
    <a href="{{.ApproveURL}}">Approve all listed entries</a><br>
    <a href="{{.RejectURL}}">Request changes</a>
  </p>
  <p>The links are valid until {{.ExpiresAt}}. No account or login is needed.</p>
</body>
</html>`))

var resultTmpl = template.Must(template.New("result").Parse(`<html>
<body style="font-family: sans-serif">
  <p>Dear {{.StudentName}},</p>
  {{if eq .Outcome "APPROVE"}}
  <p>Your supervisor approved {{.RecordCount}} work-log
  {{if eq .RecordCount 1}}entry{{else}}entries{{end}}.</p>
  {{else}}
  <p>Your supervisor requested changes to {{.RecordCount}} work-log
  {{if eq .RecordCount 1}}entry{{else}}entries{{end}}.</p>
  {{end}}
  {{with .Sample}}<p>First entry: {{.WorkDate}} — {{.Activity}} ({{.Hours}}h)</p>{{end}}
  {{if .Comment}}<p>Comment: {{.Comment}}</p>{{end}}
</body>
</html>`))

func renderRequest(req ApprovalRequest) (string, error) {
	var buf bytes.Buffer
	if err := requestTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderResult(res DecisionResult) (string, error) {
	var buf bytes.Buffer
	if err := resultTmpl.Execute(&buf, res); err != nil {
		return "", err
	}
	return buf.String(), nil
}
