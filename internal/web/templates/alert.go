// Package templates renders the HTMX fragments served by the web layer.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

var errorAlertTmpl = template.Must(template.New("error-alert").Parse(
	`<div class="alert alert-error" role="alert" data-code="{{.Code}}">` +
		`<p class="alert-message">{{.Message}}</p>` +
		`{{if .Action}}<p class="alert-action">{{.Action}}</p>{{end}}` +
		`<span class="alert-code">{{.Code}}</span>` +
		`</div>`))

var noticeTmpl = template.Must(template.New("notice").Parse(
	`<div class="notice notice-{{.Level}}" role="status">{{.Message}}</div>`))

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	data := struct{ Message, Action, Code string }{message, action, code}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return errorAlertTmpl.Execute(w, data)
	})
}

// Notice renders a flash message. An empty message renders nothing.
func Notice(level, message string) templ.Component {
	data := struct{ Level, Message string }{level, message}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if message == "" {
			return nil
		}
		return noticeTmpl.Execute(w, data)
	})
}

var loginTmpl = template.Must(template.New("login").Parse(
	`<form class="login" method="post" action="/login">` +
		`{{if .Error}}<div class="alert alert-error" role="alert">{{.Error}}</div>{{end}}` +
		`<label>Username <input name="username" value="{{.Username}}" autocomplete="username" required></label>` +
		`<label>Password <input name="password" type="password" autocomplete="current-password" required></label>` +
		`<button type="submit">Sign in</button>` +
		`</form>`))

// LoginForm renders the sign-in form, echoing the username after a failure.
func LoginForm(username, errMsg string) templ.Component {
	data := struct{ Username, Error string }{username, errMsg}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return loginTmpl.Execute(w, data)
	})
}
