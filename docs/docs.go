package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Yatra Sevak Backend",
    "description": "Footfall forecasting, darshan queue passes and crowd safety for Gujarat pilgrimage sites",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "AdminKey": {"type": "apiKey", "in": "header", "name": "X-Admin-Key"}
  },
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Health check"}},
    "/api/sites": {"get": {"tags": ["sites"], "summary": "List sites"}},
    "/api/sites/nearest": {"get": {"tags": ["sites"], "summary": "Nearest site to a coordinate"}},
    "/api/sites/{id}/forecast": {"get": {"tags": ["sites"], "summary": "Daily footfall forecast"}},
    "/api/sites/{id}/queue": {
      "get": {"tags": ["queue"], "summary": "Queue status"},
      "post": {"tags": ["queue"], "summary": "Join queue"}
    },
    "/api/sites/{id}/sos": {"post": {"tags": ["safety"], "summary": "Send SOS"}},
    "/api/passes/{id}": {"get": {"tags": ["queue"], "summary": "Pass details"}},
    "/api/passes/{id}/progress": {"get": {"tags": ["queue"], "summary": "Pass progress"}},
    "/api/surge": {"get": {"tags": ["surge"], "summary": "Surge status"}},
    "/api/live": {"get": {"tags": ["live"], "summary": "Websocket event stream"}},
    "/api/admin/passes/priority": {"post": {"tags": ["admin"], "summary": "Grant priority", "security": [{"AdminKey": []}]}},
    "/api/admin/passes/cancel": {"post": {"tags": ["admin"], "summary": "Cancel passes", "security": [{"AdminKey": []}]}},
    "/api/admin/passes/{id}/call": {"post": {"tags": ["admin"], "summary": "Call pass", "security": [{"AdminKey": []}]}},
    "/api/admin/surge": {"put": {"tags": ["admin"], "summary": "Set surge flag", "security": [{"AdminKey": []}]}},
    "/api/admin/sites/{id}/surge/evaluate": {"post": {"tags": ["admin"], "summary": "Evaluate surge", "security": [{"AdminKey": []}]}},
    "/api/admin/sites/{id}/importances": {"get": {"tags": ["admin"], "summary": "Feature importances", "security": [{"AdminKey": []}]}},
    "/api/admin/sites/{id}/alerts": {"get": {"tags": ["admin"], "summary": "List alerts", "security": [{"AdminKey": []}]}},
    "/api/admin/sites/{id}/alerts/dispatch": {"post": {"tags": ["admin"], "summary": "Dispatch responders", "security": [{"AdminKey": []}]}},
    "/api/admin/sites/{id}/scan": {"post": {"tags": ["admin"], "summary": "Scan crowd sensors", "security": [{"AdminKey": []}]}},
    "/api/admin/sites/{id}/history": {"get": {"tags": ["admin"], "summary": "Archived passes", "security": [{"AdminKey": []}]}},
    "/api/admin/queue/export": {"get": {"tags": ["admin"], "summary": "Export queue CSV", "security": [{"AdminKey": []}]}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
