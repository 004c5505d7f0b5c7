package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
)

// Azure credential environment variables.
const (
	EnvAzureKey = "AZURE_STORAGE_KEY"
	EnvAzureSAS = "AZURE_STORAGE_SAS"
)

// ErrNoAzureCredentials is returned when neither a key nor a SAS token is set.
var ErrNoAzureCredentials = errors.New("set " + EnvAzureKey + " or " + EnvAzureSAS + " for azblob destinations")

// blobAPI is the part of *azblob.Client used by Azure.
type blobAPI interface {
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
}

// Azure uploads results into a blob container.
type Azure struct {
	client    blobAPI
	account   string
	container string
	prefix    string
	logger    *logging.Logger
}

// NewAzure builds an Azure saver. A SAS token takes precedence over a
// shared key.
func NewAzure(dest Destination, httpClient *nethttp.Client, logger *logging.Logger) (*Azure, error) {
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", dest.Account)
	opts := &azblob.ClientOptions{}
	if httpClient != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: httpClient}
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case os.Getenv(EnvAzureSAS) != "":
		client, err = azblob.NewClientWithNoCredential(serviceURL+"?"+trimQuery(os.Getenv(EnvAzureSAS)), opts)
	case os.Getenv(EnvAzureKey) != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(dest.Account, os.Getenv(EnvAzureKey))
		if err == nil {
			client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, opts)
		}
	default:
		return nil, ErrNoAzureCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return newAzure(client, dest, logger), nil
}

func newAzure(client blobAPI, dest Destination, logger *logging.Logger) *Azure {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Azure{client: client, account: dest.Account, container: dest.Container, prefix: dest.Prefix, logger: logger}
}

// Save streams the result into a block blob.
func (a *Azure) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	blob := objectKey(a.prefix, name)
	if _, err := a.client.UploadStream(ctx, a.container, blob, r, nil); err != nil {
		return "", fmt.Errorf("failed to upload to %s/%s: %w", a.container, blob, err)
	}
	location := "azblob://" + a.account + "/" + a.container + "/" + blob
	a.logger.Debug().Str("location", location).Int64("bytes", size).Msg("result uploaded")
	return location, nil
}

func trimQuery(sas string) string {
	if len(sas) > 0 && sas[0] == '?' {
		return sas[1:]
	}
	return sas
}
