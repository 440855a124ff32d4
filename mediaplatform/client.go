package mediaplatform

import (
	"fmt"
	"log"
	"time"

	"github.com/imroc/req"
	"github.com/tidwall/gjson"
)

// FormField is one staged upload form parameter. Order matters on transfer.
type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedTarget is the negotiated upload destination.
type StagedTarget struct {
	URL         string      // Where the bytes go
	ResourceURL string      // Handle used to register the asset afterwards
	Parameters  []FormField // Form fields, in platform order
}

// AssetSource is one processed playback variant.
type AssetSource struct {
	URL      string
	MimeType string
}

// RegisteredAsset is the result of registering an uploaded file.
type RegisteredAsset struct {
	AssetID      string
	Sources      []AssetSource // Non-empty when the platform already processed the upload
	ThumbnailURL string
}

// AssetStatus is a readiness snapshot for a registered asset.
type AssetStatus struct {
	RawStatus    string
	Sources      []AssetSource
	ThumbnailURL string
}

const stagedUploadsCreateMutation = `
mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets {
      url
      resourceUrl
      parameters {
        name
        value
      }
    }
    userErrors {
      field
      message
    }
  }
}`

const fileCreateMutation = `
mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {
      id
      ... on Video {
        sources {
          url
          mimeType
        }
        preview {
          image {
            url
          }
        }
      }
    }
    userErrors {
      field
      message
    }
  }
}`

const videoNodeQuery = `
query videoNode($id: ID!) {
  node(id: $id) {
    ... on Video {
      status
      sources {
        url
        mimeType
      }
      preview {
        image {
          url
        }
      }
    }
  }
}`

// Client talks to the media platform's admin GraphQL endpoint.
type Client struct {
	endpoint    string
	accessToken string
	http        *req.Req
}

// NewClient creates a platform client.
func NewClient(endpoint, accessToken string, timeout time.Duration) *Client {
	r := req.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &Client{
		endpoint:    endpoint,
		accessToken: accessToken,
		http:        r,
	}
}

// query posts one GraphQL document and returns the raw response body.
func (c *Client) query(document string, variables map[string]interface{}) ([]byte, error) {
	payload := map[string]interface{}{
		"query":     document,
		"variables": variables,
	}

	resp, err := c.http.Post(c.endpoint, req.Header{
		"Content-Type":   "application/json",
		"X-Access-Token": c.accessToken,
	}, req.BodyJSON(&payload))
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}

	status := resp.Response().StatusCode
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("platform returned HTTP %d", status)
	}

	body := resp.Bytes()
	if errs := gjson.GetBytes(body, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		return nil, fmt.Errorf("platform error: %s", errs.Array()[0].Get("message").String())
	}

	return body, nil
}

// firstUserError extracts the first structured user error under the given path.
func firstUserError(body []byte, path string) error {
	errs := gjson.GetBytes(body, path).Array()
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	field := first.Get("field").String()
	msg := first.Get("message").String()
	if field != "" {
		return fmt.Errorf("%s: %s", field, msg)
	}
	return fmt.Errorf("%s", msg)
}

func parseSources(result gjson.Result) []AssetSource {
	var sources []AssetSource
	for _, s := range result.Array() {
		sources = append(sources, AssetSource{
			URL:      s.Get("url").String(),
			MimeType: s.Get("mimeType").String(),
		})
	}
	return sources
}

// RequestStagedUpload negotiates a staged upload target for one file.
func (c *Client) RequestStagedUpload(filename, mimeType string, byteSize int64) (*StagedTarget, error) {
	body, err := c.query(stagedUploadsCreateMutation, map[string]interface{}{
		"input": []map[string]interface{}{{
			"filename":   filename,
			"mimeType":   mimeType,
			"fileSize":   fmt.Sprintf("%d", byteSize),
			"resource":   "VIDEO",
			"httpMethod": "POST",
		}},
	})
	if err != nil {
		return nil, err
	}

	if err := firstUserError(body, "data.stagedUploadsCreate.userErrors"); err != nil {
		return nil, fmt.Errorf("staged upload rejected: %w", err)
	}

	target := gjson.GetBytes(body, "data.stagedUploadsCreate.stagedTargets.0")
	if !target.Exists() {
		return nil, fmt.Errorf("platform returned no staged target")
	}

	staged := &StagedTarget{
		URL:         target.Get("url").String(),
		ResourceURL: target.Get("resourceUrl").String(),
	}
	for _, p := range target.Get("parameters").Array() {
		staged.Parameters = append(staged.Parameters, FormField{
			Name:  p.Get("name").String(),
			Value: p.Get("value").String(),
		})
	}

	log.Printf("[Platform] Staged upload negotiated for %s (%d form fields)", filename, len(staged.Parameters))
	return staged, nil
}

// RegisterAsset registers an uploaded file by its staged resource URL.
// Sources come back non-empty when the platform processed the upload inline.
func (c *Client) RegisterAsset(resourceURL string) (*RegisteredAsset, error) {
	body, err := c.query(fileCreateMutation, map[string]interface{}{
		"files": []map[string]interface{}{{
			"originalSource": resourceURL,
			"contentType":    "VIDEO",
		}},
	})
	if err != nil {
		return nil, err
	}

	if err := firstUserError(body, "data.fileCreate.userErrors"); err != nil {
		return nil, fmt.Errorf("asset registration rejected: %w", err)
	}

	file := gjson.GetBytes(body, "data.fileCreate.files.0")
	if !file.Exists() {
		return nil, fmt.Errorf("platform returned no file")
	}

	asset := &RegisteredAsset{
		AssetID:      file.Get("id").String(),
		Sources:      parseSources(file.Get("sources")),
		ThumbnailURL: file.Get("preview.image.url").String(),
	}
	if asset.AssetID == "" {
		return nil, fmt.Errorf("platform returned file without id")
	}

	return asset, nil
}

// GetAssetStatus queries processing status for a registered asset.
func (c *Client) GetAssetStatus(assetID string) (*AssetStatus, error) {
	body, err := c.query(videoNodeQuery, map[string]interface{}{
		"id": assetID,
	})
	if err != nil {
		return nil, err
	}

	node := gjson.GetBytes(body, "data.node")
	if !node.Exists() {
		return nil, fmt.Errorf("asset %s not found", assetID)
	}

	return &AssetStatus{
		RawStatus:    node.Get("status").String(),
		Sources:      parseSources(node.Get("sources")),
		ThumbnailURL: node.Get("preview.image.url").String(),
	}, nil
}

// PickPlaybackSource chooses the playback variant: exact video/mp4 wins, else
// the first variant. Returns nil when there are no sources yet.
func PickPlaybackSource(sources []AssetSource) *AssetSource {
	for i := range sources {
		if sources[i].MimeType == "video/mp4" {
			return &sources[i]
		}
	}
	if len(sources) > 0 {
		return &sources[0]
	}
	return nil
}
