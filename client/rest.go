package client

import (
	"context"
	"fmt"

	"github.com/alejzeis/chess-matchmaker/common"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

type restClient struct {
	rest      *resty.Client
	serverURL string
}

func createRestClient(serverURL string) *restClient {
	client := new(restClient)
	client.serverURL = serverURL
	client.rest = resty.New()
	return client
}

// find makes a single pairing request. Any 200 response is returned as is, whatever its message.
func (r *restClient) find(ctx context.Context, req common.FindRequest) (common.FindResponse, error) {
	var out common.FindResponse

	url := r.serverURL + common.FindPath
	response, err := r.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(url)
	if err != nil {
		return common.FindResponse{}, fmt.Errorf("find: %w", err)
	} else if !response.IsSuccess() {
		log.WithFields(log.Fields{
			"url":    url,
			"status": response.StatusCode(),
			"body":   response.String(),
		}).Warn("Find request rejected")
		return common.FindResponse{}, fmt.Errorf("find: unexpected status %d", response.StatusCode())
	}

	return out, nil
}

// info retrieves the server's software and queue information
func (r *restClient) info(ctx context.Context) (common.InfoResponse, error) {
	var out common.InfoResponse

	url := r.serverURL + "/info"
	response, err := r.rest.R().SetContext(ctx).SetResult(&out).Get(url)
	if err != nil {
		return common.InfoResponse{}, fmt.Errorf("info: %w", err)
	} else if !response.IsSuccess() {
		return common.InfoResponse{}, fmt.Errorf("info: unexpected status %d", response.StatusCode())
	}

	return out, nil
}
