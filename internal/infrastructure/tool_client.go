package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"creditbot/internal/entities"
)

// toolEndpoints maps a tool token to its upstream endpoint. The user input is
// substituted for %s, query-escaped.
var toolEndpoints = map[string]string{
	"ai_t2i":       "https://text-to-img.apis-bj-devs.workers.dev/?prompt=%s",
	"ai_seaart":    "https://seaart-ai.apis-bj-devs.workers.dev/?Prompt=%s",
	"ai_deepseek":  "https://deepseek-ai.apis-bj-devs.workers.dev/?question=%s",
	"down_tiktok":  "https://tikdown.apis-bj-devs.workers.dev/?url=%s",
	"down_insta":   "https://instadown.apis-bj-devs.workers.dev/?url=%s",
	"search_apk":   "https://apk-search.apis-bj-devs.workers.dev/?q=%s",
	"search_web":   "https://web-search.apis-bj-devs.workers.dev/?q=%s",
	"tools_ip":     "https://ip-info.apis-bj-devs.workers.dev/?ip=%s",
	"tools_sim":    "https://sim-info.apis-bj-devs.workers.dev/?num=%s",
}

// ToolClient is the tool-invocation collaborator: thin HTTP glue around the
// upstream endpoints, plus the one tool that runs locally (QR generation).
type ToolClient struct {
	http *http.Client
}

func NewToolClient() *ToolClient {
	return &ToolClient{
		http: &http.Client{Timeout: 45 * time.Second},
	}
}

// KnownToken reports whether a token has a backing tool.
func KnownToken(token string) bool {
	if token == "tools_qr" {
		return true
	}
	_, ok := toolEndpoints[token]
	return ok
}

func (c *ToolClient) Invoke(ctx context.Context, token, input string) (*entities.ToolArtifact, error) {
	if token == "tools_qr" {
		png, err := qrcode.Encode(input, qrcode.Medium, 512)
		if err != nil {
			return nil, fmt.Errorf("%w: qr encode: %v", entities.ErrToolFailed, err)
		}
		return &entities.ToolArtifact{FileName: "qrcode.png", Data: png}, nil
	}

	tmpl, ok := toolEndpoints[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tool %q", entities.ErrToolFailed, token)
	}

	endpoint := fmt.Sprintf(tmpl, url.QueryEscape(input))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrToolFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrToolFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream status %d", entities.ErrToolFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrToolFailed, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/") {
		ext := "bin"
		if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
			ext = strings.SplitN(parts[1], ";", 2)[0]
		}
		return &entities.ToolArtifact{FileName: "result." + ext, Data: data}, nil
	}
	return &entities.ToolArtifact{Text: string(data)}, nil
}
