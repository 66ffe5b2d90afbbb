package honeypot

import (
	"fmt"
	"time"
)

// Response is the fake payload served on a decoy route.
type Response struct {
	Status      int
	ContentType string
	Body        string
}

// DecoyResponse builds a plausible fake response for a decoy path. The
// content keeps the bot engaged: login pages with trap fields, a fake
// config dump, a fake phpMyAdmin error, an API that always wants auth.
func DecoyResponse(path string, now time.Time) Response {
	switch path {
	case "/admin", "/administrator", "/wp-admin", "/wp-login.php", "/login":
		return Response{
			Status:      200,
			ContentType: "text/html; charset=utf-8",
			Body:        fakeLoginPage(path),
		}

	case "/phpmyadmin":
		return Response{
			Status:      200,
			ContentType: "text/html; charset=utf-8",
			Body:        fakePhpMyAdminError,
		}

	case "/.env", "/config", "/backup", "/private":
		return Response{
			Status:      200,
			ContentType: "text/plain; charset=utf-8",
			Body:        fakeEnvFile,
		}

	case "/api/debug", "/api/test", "/api/keys":
		return Response{
			Status:      401,
			ContentType: "application/json",
			Body: fmt.Sprintf(
				`{"status":"error","message":"Authentication required","code":401,"timestamp":%q,"endpoint":%q}`,
				now.UTC().Format(time.RFC3339), path),
		}

	default:
		return Response{
			Status:      404,
			ContentType: "text/html; charset=utf-8",
			Body:        fakeNotFoundPage(path),
		}
	}
}

func fakeLoginPage(path string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <title>Admin Login</title>
  <meta name="robots" content="noindex, nofollow">
</head>
<body>
  <div style="text-align: center; margin-top: 100px;">
    <h1>Admin Login</h1>
    <form method="POST" action="%s/process">
      <div>
        <label>Username:</label>
        <input type="text" name="username">
      </div>
      <div style="margin-top: 10px;">
        <label>Password:</label>
        <input type="password" name="password">
      </div>
      <div style="margin-top: 20px;">
        <button type="submit">Login</button>
      </div>
      <input type="text" name="email_confirm" style="display:none">
      <input type="checkbox" name="agreement" style="display:none" checked>
    </form>
  </div>
</body>
</html>`, path)
}

const fakePhpMyAdminError = `<!DOCTYPE html>
<html>
<head>
  <title>phpMyAdmin</title>
  <meta name="robots" content="noindex, nofollow">
</head>
<body>
  <div style="text-align: center; margin-top: 100px;">
    <h1>phpMyAdmin - Error</h1>
    <p>Access denied for user 'admin'@'localhost'</p>
    <p><a href="/phpmyadmin/index.php?server=1">Try again</a></p>
  </div>
</body>
</html>`

const fakeEnvFile = `# Environment Configuration
APP_ENV=production
APP_DEBUG=false
APP_KEY=base64:DUMMY_KEY_FOR_HONEYPOT
DB_CONNECTION=mysql
DB_HOST=127.0.0.1
DB_PORT=3306
DB_DATABASE=agrotm_prod
DB_USERNAME=agrotm_user
# Sensitive data removed for security`

func fakeNotFoundPage(path string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <title>404 Not Found</title>
  <meta name="robots" content="noindex, nofollow">
</head>
<body>
  <div style="text-align: center; margin-top: 100px;">
    <h1>404 Not Found</h1>
    <p>The requested URL %s was not found on this server.</p>
    <p>Perhaps you are looking for:</p>
    <ul style="list-style: none;">
      <li><a href="/home">Home</a></li>
      <li><a href="/login">Login</a></li>
      <li><a href="/admin">Admin</a></li>
      <li><a href="/api/docs">API Documentation</a></li>
    </ul>
  </div>
  <div style="display:none">
    <a href="/wp-admin">WordPress Admin</a>
    <a href="/phpmyadmin">Database</a>
    <a href="/config">Configuration</a>
  </div>
</body>
</html>`, path)
}

// HiddenFormFieldsHTML returns the trap-field block frontends embed in real
// forms. Humans never see the fields; bots that autofill them get flagged.
func HiddenFormFieldsHTML() string {
	return `<div style="position: absolute; left: -9999px; top: -9999px; opacity: 0; height: 0; width: 0; overflow: hidden;">
  <input type="text" name="email_confirm" tabindex="-1" autocomplete="off">
  <input type="url" name="website" tabindex="-1" autocomplete="off">
  <input type="tel" name="phone_home" tabindex="-1" autocomplete="off">
  <input type="checkbox" name="agreement" tabindex="-1" value="1">
</div>`
}
