package server

import (
	"html/template"
	"net/http"
)

var countdownTmpl = template.Must(template.New("countdown").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Almost there</title>
<style>
body{font-family:sans-serif;background:#0f1420;color:#e8ecf1;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0}
.card{text-align:center;padding:2rem;max-width:22rem}
.count{font-size:3rem;font-weight:700;margin:1rem 0}
a{color:#5aa7ff}
</style>
</head>
<body>
<div class="card">
<h1>Almost there</h1>
<p>You'll be taken back to the chat in</p>
<div class="count" id="count">{{.Seconds}}</div>
<p><a id="back" href="{{.ReturnURL}}">Continue now</a></p>
</div>
<script>
var left = {{.Seconds}};
var el = document.getElementById("count");
var tick = setInterval(function () {
  left--;
  el.textContent = left;
  if (left <= 0) {
    clearInterval(tick);
    window.location.href = {{.ReturnURL}};
  }
}, 1000);
</script>
</body>
</html>
`))

var errorTmpl = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;background:#0f1420;color:#e8ecf1;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0}
.card{text-align:center;padding:2rem;max-width:22rem}
</style>
</head>
<body>
<div class="card">
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</div>
</body>
</html>
`))

func (s *Service) renderCountdown(w http.ResponseWriter, returnURL string, seconds int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := countdownTmpl.Execute(w, struct {
		ReturnURL string
		Seconds   int
	}{ReturnURL: returnURL, Seconds: seconds})
	if err != nil {
		log.WithError(err).Error("Could not render countdown page")
	}
}

func (s *Service) renderError(w http.ResponseWriter, code int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	err := errorTmpl.Execute(w, struct {
		Title string
		Body  string
	}{Title: title, Body: body})
	if err != nil {
		log.WithError(err).Error("Could not render error page")
	}
}
