package upload

import (
	"errors"
	"html/template"
	"io"
	"net/url"
)

// page is the view model of the result page. Every string reaches the
// output through html/template, so processor output cannot inject markup.
type page struct {
	Received    bool
	TempPath    string
	TargetPath  string
	Stored      bool
	Ran         bool
	Lines       []string
	Succeeded   bool
	DownloadURL string
	Message     string
}

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Video upload</title></head>
<body>
{{- if .Received}}
<strong>Uploaded file path:</strong> {{.TempPath}}<br>
<strong>Target path:</strong> {{.TargetPath}}<br>
{{- end}}
{{- if .Stored}}
✅ File uploaded to: {{.TargetPath}}<br>
{{- end}}
{{- if .Ran}}
<pre>
{{- range .Lines}}
{{.}}
{{- end}}
</pre>
{{- end}}
{{- if .Succeeded}}
<br>✅ Video processed successfully.<br>
<a href="{{.DownloadURL}}" download>Download Processed Video</a>
{{- else if .Message}}
{{if .Ran}}<br>{{end}}❌ {{.Message}}
{{- end}}
</body>
</html>
`))

func newPage(rep *Report) page {
	p := page{
		Received:   true,
		TempPath:   rep.Upload.TempPath,
		TargetPath: rep.TargetPath,
		Stored:     rep.Stored,
		Ran:        rep.Ran,
		Lines:      rep.Result.Lines,
		Succeeded:  rep.Succeeded(),
	}
	if p.Succeeded {
		p.DownloadURL = DownloadPath(rep.FileName)
	}
	var e *Error
	if rep.Err != nil {
		p.Message = ErrProcessing.Message()
		if errors.As(rep.Err, &e) {
			p.Message = e.Message()
		}
	}
	return p
}

func absentPage() page {
	return page{Message: ErrInputAbsent.Message()}
}

// DownloadPath is the relative link under which a processed file is served.
func DownloadPath(base string) string {
	return "processed/" + url.PathEscape(ProcessedName(base))
}

func renderPage(w io.Writer, p page) error {
	return resultTemplate.Execute(w, p)
}
