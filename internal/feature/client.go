package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to an ArcGIS-style feature service over its REST API.
// It implements Store.
type Client struct {
	http       *resty.Client
	portalURL  string
	serviceURL string
	username   string
	password   string
	token      string
	logger     *zap.Logger
}

// NewClient creates a Client for one feature service. portalURL is the
// organization root used for token generation; serviceURL is the
// .../FeatureServer endpoint whose layers the run reads and edits.
func NewClient(portalURL, serviceURL, username, password string, logger *zap.Logger) *Client {
	http := resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       http,
		portalURL:  strings.TrimRight(portalURL, "/"),
		serviceURL: strings.TrimRight(serviceURL, "/"),
		username:   username,
		password:   password,
		logger:     logger,
	}
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
	Error   *Error `json:"error,omitempty"`
}

// SignIn obtains an access token for the configured account. It must be
// called once before any layer operation.
func (c *Client) SignIn(ctx context.Context) error {
	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":   c.username,
			"password":   c.password,
			"referer":    c.portalURL,
			"expiration": "120",
			"f":          "json",
		}).
		SetResult(&out).
		Post(c.portalURL + "/sharing/rest/generateToken")
	if err != nil {
		return fmt.Errorf("failed to call generateToken: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("generateToken rejected: %w", out.Error)
	}
	if out.Token == "" {
		return fmt.Errorf("generateToken returned no token (HTTP %d)", resp.StatusCode())
	}

	c.token = out.Token
	c.logger.Info("signed in to portal", zap.String("user", c.username))
	return nil
}

func (c *Client) layerURL(layer int) string {
	return c.serviceURL + "/" + strconv.Itoa(layer)
}

type queryResponse struct {
	Features []Feature `json:"features"`
	Error    *Error    `json:"error,omitempty"`
}

// Query returns all features of the layer matching the where clause.
// An empty where selects everything.
func (c *Client) Query(ctx context.Context, layer int, where string) ([]Feature, error) {
	if where == "" {
		where = "1=1"
	}

	var out queryResponse
	_, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"where":          where,
			"outFields":      "*",
			"returnGeometry": "true",
			"token":          c.token,
			"f":              "json",
		}).
		SetResult(&out).
		Get(c.layerURL(layer) + "/query")
	if err != nil {
		return nil, fmt.Errorf("failed to query layer %d: %w", layer, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("query on layer %d rejected: %w", layer, out.Error)
	}

	c.logger.Debug("queried layer",
		zap.Int("layer", layer),
		zap.String("where", where),
		zap.Int("count", len(out.Features)),
	)
	return out.Features, nil
}

type editResponse struct {
	AddResults    []EditResult `json:"addResults"`
	UpdateResults []EditResult `json:"updateResults"`
	DeleteResults []EditResult `json:"deleteResults"`
	Error         *Error       `json:"error,omitempty"`
}

func (c *Client) applyEdits(ctx context.Context, layer int, form map[string]string) (*editResponse, error) {
	form["f"] = "json"
	form["token"] = c.token
	form["rollbackOnFailure"] = "false"

	var out editResponse
	_, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		Post(c.layerURL(layer) + "/applyEdits")
	if err != nil {
		return nil, fmt.Errorf("failed to apply edits on layer %d: %w", layer, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("applyEdits on layer %d rejected: %w", layer, out.Error)
	}
	return &out, nil
}

// firstFailure surfaces the first unsuccessful per-record result, because
// applyEdits reports partial failures with HTTP 200.
func firstFailure(results []EditResult) error {
	for _, r := range results {
		if !r.Success {
			if r.Error != nil {
				return fmt.Errorf("edit failed for object %d: %w", r.ObjectID, r.Error)
			}
			return fmt.Errorf("edit failed for object %d", r.ObjectID)
		}
	}
	return nil
}

// Add inserts features and returns their assigned object ids.
func (c *Client) Add(ctx context.Context, layer int, features []Feature) ([]EditResult, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode adds: %w", err)
	}
	out, err := c.applyEdits(ctx, layer, map[string]string{"adds": string(body)})
	if err != nil {
		return nil, err
	}
	return out.AddResults, firstFailure(out.AddResults)
}

// Update rewrites existing features; each feature's attributes must carry
// its OBJECTID.
func (c *Client) Update(ctx context.Context, layer int, features []Feature) ([]EditResult, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode updates: %w", err)
	}
	out, err := c.applyEdits(ctx, layer, map[string]string{"updates": string(body)})
	if err != nil {
		return nil, err
	}
	return out.UpdateResults, firstFailure(out.UpdateResults)
}

// Delete removes features by object id. Deleting nothing is a no-op.
func (c *Client) Delete(ctx context.Context, layer int, objectIDs []int64) error {
	if len(objectIDs) == 0 {
		return nil
	}
	ids := make([]string, len(objectIDs))
	for i, id := range objectIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	out, err := c.applyEdits(ctx, layer, map[string]string{"deletes": strings.Join(ids, ",")})
	if err != nil {
		return err
	}
	return firstFailure(out.DeleteResults)
}

type attachmentsResponse struct {
	AttachmentInfos []AttachmentInfo `json:"attachmentInfos"`
	Error           *Error           `json:"error,omitempty"`
}

// Attachments lists the attachments of one feature.
func (c *Client) Attachments(ctx context.Context, layer int, objectID int64) ([]AttachmentInfo, error) {
	var out attachmentsResponse
	_, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"token": c.token, "f": "json"}).
		SetResult(&out).
		Get(fmt.Sprintf("%s/%d/attachments", c.layerURL(layer), objectID))
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments for object %d: %w", objectID, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("attachment list for object %d rejected: %w", objectID, out.Error)
	}
	return out.AttachmentInfos, nil
}

// DownloadAttachment fetches one attachment's raw bytes.
func (c *Client) DownloadAttachment(ctx context.Context, layer int, objectID int64, att AttachmentInfo) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		Get(fmt.Sprintf("%s/%d/attachments/%d", c.layerURL(layer), objectID, att.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment %d: %w", att.ID, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("attachment %d download returned HTTP %d", att.ID, resp.StatusCode())
	}
	return resp.Body(), nil
}

type addAttachmentResponse struct {
	Result *EditResult `json:"addAttachmentResult"`
	Error  *Error      `json:"error,omitempty"`
}

// AddAttachment uploads one file onto a feature.
func (c *Client) AddAttachment(ctx context.Context, layer int, objectID int64, name string, data []byte) error {
	var out addAttachmentResponse
	_, err := c.http.R().
		SetContext(ctx).
		SetFileReader("attachment", name, bytes.NewReader(data)).
		SetFormData(map[string]string{"token": c.token, "f": "json"}).
		SetResult(&out).
		Post(fmt.Sprintf("%s/%d/addAttachment", c.layerURL(layer), objectID))
	if err != nil {
		return fmt.Errorf("failed to upload attachment %q to object %d: %w", name, objectID, err)
	}
	if out.Error != nil {
		return fmt.Errorf("attachment upload to object %d rejected: %w", objectID, out.Error)
	}
	if out.Result != nil && !out.Result.Success {
		return fmt.Errorf("attachment upload to object %d reported failure", objectID)
	}
	return nil
}

var _ Store = (*Client)(nil)
