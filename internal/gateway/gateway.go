// Package gateway holds the station's outbound HTTP calls: artifact
// downloads, restore uploads, warning webhooks and liveness probes. Every
// call builds its own client with the timeout that operation tolerates.
// A bearer value is attached as an Authorization header only when non-empty.
package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/models"
	"github.com/AndreasAanestad/websync-station/internal/utils"
)

const (
	downloadTimeout = 300 * time.Second
	restoreTimeout  = 300 * time.Second
	warningTimeout  = 15 * time.Second
	probeTimeout    = 10 * time.Second
)

// Download fetches the artifact at urlStr into saveFolder and returns the
// stored filename and the number of bytes written. The filename comes from
// the Content-Disposition header when one is present and parseable, else
// from the last URL path segment; either way it is sanitized, defaulted to
// "downloaded_file" when sanitization empties it, and de-conflicted with a
// numeric suffix when the name is already taken.
func Download(urlStr, saveFolder, bearer string) (string, int64, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, err
	}
	segments := strings.Split(u.Path, "/")
	filenameFromURL := segments[len(segments)-1]
	if filenameFromURL == "" {
		return "", 0, fmt.Errorf("Cannot extract filename from URL path: %s", urlStr)
	}

	if err := os.MkdirAll(saveFolder, 0o755); err != nil {
		return "", 0, err
	}

	client := &http.Client{Timeout: downloadTimeout}
	req, err := http.NewRequest(http.MethodGet, urlStr, nil)
	if err != nil {
		return "", 0, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("Request to %s failed with status: %s", urlStr, resp.Status)
	}

	finalName := filenameFromURL
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if extracted, ok := filenameFromContentDisposition(cd); ok {
			finalName = extracted
		}
	}

	finalName = utils.SanitizeFilename(finalName)
	if finalName == "" {
		finalName = "downloaded_file"
	}

	candidate := filepath.Join(saveFolder, finalName)
	if _, statErr := os.Stat(candidate); statErr == nil {
		ext := filepath.Ext(finalName)
		stem := strings.TrimSuffix(finalName, ext)
		if stem == "" {
			// Names like ".bashrc" keep the whole name as the stem
			stem = finalName
			ext = ""
		}
		for i := 0; ; i++ {
			versioned := fmt.Sprintf("%s_%d%s", stem, i, ext)
			candidate = filepath.Join(saveFolder, versioned)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				finalName = versioned
				break
			}
			if i > 1000 {
				return "", 0, errors.New("Could not find a unique filename after 1000 attempts.")
			}
		}
	}

	dest, err := os.Create(candidate)
	if err != nil {
		return "", 0, err
	}
	defer dest.Close()

	written, err := io.Copy(dest, resp.Body)
	if err != nil {
		return "", 0, err
	}
	return finalName, written, nil
}

// filenameFromContentDisposition pulls the filename parameter out of a
// Content-Disposition header value. No regex, just a simple split.
func filenameFromContentDisposition(cd string) (string, bool) {
	for _, part := range strings.Split(cd, ";") {
		trimmed := strings.TrimSpace(part)
		if strings.HasPrefix(trimmed, "filename=") {
			return strings.Trim(trimmed[len("filename="):], `"`), true
		}
	}
	return "", false
}

// Restore uploads the file at filePath to urlStr as a multipart form with
// a single part named "file" (application/octet-stream). The body streams
// through a pipe so large artifacts never sit in memory.
func Restore(urlStr, filePath, bearer string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	req, err := http.NewRequest(http.MethodPost, urlStr, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	client := &http.Client{Timeout: restoreTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST to %s failed: %s", urlStr, resp.Status)
	}
	return nil
}

// PostWarning delivers a warning payload to one configured route. On a
// non-2xx response the body is captured into the returned error so the
// route's rejection reason lands in the station log.
func PostWarning(urlStr, bearer string, payload models.WarningPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: warningTimeout}
	req, err := http.NewRequest(http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		errorBody := string(respBody)
		if readErr != nil {
			errorBody = fmt.Sprintf("Could not retrieve error body: %v", readErr)
		}
		return fmt.Errorf("POST request to %s failed with status: %s. Response: %s", urlStr, resp.Status, errorBody)
	}
	return nil
}

// Probe performs the uptime liveness check: a plain GET with no
// authentication. Any transport error or non-2xx status means down.
func Probe(urlStr string) error {
	client := &http.Client{Timeout: probeTimeout}
	resp, err := client.Get(urlStr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Request to %s failed with status: %s", urlStr, resp.Status)
	}
	return nil
}
