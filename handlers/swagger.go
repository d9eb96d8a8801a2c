package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the RSVP service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.String(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>undangan-rsvp - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "undangan-rsvp", "version": "v0.1.0" },
  "paths": {
    "/api/rsvp": {
      "get": {
        "summary": "List RSVP messages newest first with attendance counts",
        "responses": { "200": { "description": "records, total, attending, notAttending" }, "502": { "description": "store unavailable" } }
      },
      "post": {
        "summary": "Submit an RSVP",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["name","message"],"properties":{"name":{"type":"string"},"message":{"type":"string"},"attendance":{"type":"string","enum":["yes","no"],"default":"yes"}}}}}},
        "responses": { "201": { "description": "record created, success toast" }, "400": { "description": "validation failure toast" }, "502": { "description": "submission failure toast" } }
      }
    },
    "/api/rsvp/stream": {
      "get": { "summary": "Server-Sent Events: a 'snapshot' event with the full list on every change", "responses": { "200": { "description": "text/event-stream" }, "503": { "description": "live updates unavailable" } } }
    },
    "/api/rsvp/ws": {
      "get": { "summary": "WebSocket: one JSON snapshot per change", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
