package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Multi-Merchant Settlement {{.Version}} - API Docs</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger/spec',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`))

// APIDocs serves the OpenAPI document and a Swagger UI page for it.
type APIDocs struct {
	spec    []byte
	version string
}

// NewAPIDocs wraps the OpenAPI YAML. A nil spec makes both routes 404.
func NewAPIDocs(spec []byte, version string) *APIDocs {
	return &APIDocs{spec: spec, version: version}
}

// Spec handles GET /swagger/spec.
func (d *APIDocs) Spec(c *gin.Context) {
	if len(d.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", d.spec)
}

// UI handles GET /swagger.
func (d *APIDocs) UI(c *gin.Context) {
	if len(d.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := swaggerPage.Execute(c.Writer, struct{ Version string }{d.version}); err != nil {
		_ = c.Error(err)
	}
}
