// Package caldav is the remote transport collaborator: a minimal CalDAV
// client covering what task reconciliation needs, namely listing the
// VTODOs of one calendar collection and writing objects back. Discovery
// of principals and calendar homes is out of scope; the collection path
// comes from configuration.
package caldav

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Object is one calendar object as stored on the server.
type Object struct {
	Href string // server-absolute path of the object
	ETag string // entity tag as returned by the server, quotes included
	Data string // raw iCalendar payload
}

// Client talks to a single CalDAV calendar collection with basic auth.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	calendar   string
	username   string
	password   string
}

// NewClient creates a CalDAV client for one calendar collection.
// serverURL is the server origin (scheme://host[:port]); calendarPath is
// the collection path on that server, e.g. "/calendars/ana/tasks/".
func NewClient(serverURL, calendarPath, username, password string) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", serverURL)
	}
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}

	return &Client{
		base:     base,
		calendar: calendarPath,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Keep the Authorization header across redirects.
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}, nil
}

const todoQuery = `<?xml version="1.0" encoding="utf-8"?>
<c:calendar-query xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <d:getetag/>
    <c:calendar-data/>
  </d:prop>
  <c:filter>
    <c:comp-filter name="VCALENDAR">
      <c:comp-filter name="VTODO"/>
    </c:comp-filter>
  </c:filter>
</c:calendar-query>`

// multistatus mirrors the WebDAV 207 response body. Child elements are
// matched by local name so servers using different namespace prefixes
// all parse the same.
type multistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href     string     `xml:"href"`
	Propstat []propstat `xml:"propstat"`
}

type propstat struct {
	Status string `xml:"status"`
	Prop   prop   `xml:"prop"`
}

type prop struct {
	ETag         string `xml:"getetag"`
	CalendarData string `xml:"calendar-data"`
}

// Check verifies that the calendar collection is reachable with the
// configured credentials. Used by the login and status commands.
func (c *Client) Check(ctx context.Context) error {
	body := `<?xml version="1.0" encoding="utf-8"?><d:propfind xmlns:d="DAV:"><d:prop><d:resourcetype/></d:prop></d:propfind>`

	resp, err := c.do(ctx, "PROPFIND", c.calendar, body, map[string]string{
		"Depth":        "0",
		"Content-Type": "application/xml; charset=utf-8",
	})
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// FetchAll returns every VTODO object in the collection via a REPORT
// calendar-query.
func (c *Client) FetchAll(ctx context.Context) ([]Object, error) {
	resp, err := c.do(ctx, "REPORT", c.calendar, todoQuery, map[string]string{
		"Depth":        "1",
		"Content-Type": "application/xml; charset=utf-8",
	})
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusMultiStatus {
		return nil, statusError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var ms multistatus
	if err := xml.Unmarshal(respBody, &ms); err != nil {
		return nil, fmt.Errorf("failed to parse multistatus: %w", err)
	}

	var objects []Object
	for _, r := range ms.Responses {
		for _, ps := range r.Propstat {
			if !strings.Contains(ps.Status, "200") || ps.Prop.CalendarData == "" {
				continue
			}
			objects = append(objects, Object{
				Href: r.Href,
				ETag: ps.Prop.ETag,
				Data: ps.Prop.CalendarData,
			})
		}
	}
	return objects, nil
}

// Put writes one calendar object. An empty etag means create (If-None-
// Match: * guards against overwriting a concurrent create); a non-empty
// etag means update guarded by If-Match. Returns the new etag when the
// server provides one.
func (c *Client) Put(ctx context.Context, href, ics, etag string) (string, error) {
	headers := map[string]string{
		"Content-Type": "text/calendar; charset=utf-8",
	}
	if etag == "" {
		headers["If-None-Match"] = "*"
	} else {
		headers["If-Match"] = etag
	}

	resp, err := c.do(ctx, http.MethodPut, href, ics, headers)
	if err != nil {
		return "", fmt.Errorf("put request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp)
	}
	return resp.Header.Get("ETag"), nil
}

// Delete removes one calendar object by href.
func (c *Client) Delete(ctx context.Context, href string) error {
	resp, err := c.do(ctx, http.MethodDelete, href, "", nil)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer drain(resp)

	// 404 is tolerated: the object is gone either way.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

// ObjectHref returns the collection-relative location for a new object
// with the given remote uid.
func (c *Client) ObjectHref(remoteUID string) string {
	return c.calendar + url.PathEscape(remoteUID) + ".ics"
}

func (c *Client) do(ctx context.Context, method, path, body string, headers map[string]string) (*http.Response, error) {
	// Hrefs are already-escaped URL paths, both the ones the server
	// returns in multistatus responses and the ones ObjectHref builds.
	// Parsing keeps their escaping intact; building a url.URL from the
	// raw string would re-encode every % sign.
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid href %q: %w", path, err)
	}
	target := c.base.ResolveReference(ref)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
