// metrics.go - In-process counters and a Prometheus text exporter.
package server

import (
	"fmt"
	"net/http"
	"sync"
)

// Metrics holds application counters. One instance per Server; no globals.
type Metrics struct {
	mu sync.RWMutex

	uploadsTotal       int64
	uploadBytesTotal   int64
	uploadErrorsTotal  int64
	downloadsTotal     int64
	downloadBytesTotal int64
	downloadErrors     int64

	loginSuccessTotal  int64
	loginFailuresTotal int64

	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrorsTotal++
}

func (m *Metrics) RecordDownload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
}

func (m *Metrics) RecordDownloadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadErrors++
}

func (m *Metrics) RecordLoginSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginSuccessTotal++
}

func (m *Metrics) RecordLoginFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginFailuresTotal++
}

func (m *Metrics) RecordRequest(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	switch {
	case status >= 500:
		m.requestErrors5xx++
	case status >= 400:
		m.requestErrors4xx++
	}
}

// Handler exposes the counters in Prometheus text exposition format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		counters := []struct {
			name  string
			help  string
			value int64
		}{
			{"filevault_uploads_total", "Total successful uploads", m.uploadsTotal},
			{"filevault_upload_bytes_total", "Total bytes uploaded", m.uploadBytesTotal},
			{"filevault_upload_errors_total", "Total failed uploads", m.uploadErrorsTotal},
			{"filevault_downloads_total", "Total successful downloads", m.downloadsTotal},
			{"filevault_download_bytes_total", "Total bytes downloaded", m.downloadBytesTotal},
			{"filevault_download_errors_total", "Total failed downloads", m.downloadErrors},
			{"filevault_login_success_total", "Total successful logins", m.loginSuccessTotal},
			{"filevault_login_failures_total", "Total failed logins", m.loginFailuresTotal},
			{"filevault_requests_total", "Total HTTP requests", m.requestsTotal},
			{"filevault_request_errors_4xx_total", "Total 4xx responses", m.requestErrors4xx},
			{"filevault_request_errors_5xx_total", "Total 5xx responses", m.requestErrors5xx},
		}
		for _, c := range counters {
			fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
			fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
			fmt.Fprintf(w, "%s %d\n", c.name, c.value)
		}
	}
}
