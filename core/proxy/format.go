package proxy

import (
	"net/url"
	"strings"
)

// RequestFormat selects how endpoint paths are laid out on the provider.
type RequestFormat struct {
	azureAPIVersion string
}

// StandardFormat lays out paths as /v1/<path>.
func StandardFormat() RequestFormat {
	return RequestFormat{}
}

// AzureDeploymentFormat lays out paths as /<path>?api-version=<version>.
func AzureDeploymentFormat(apiVersion string) RequestFormat {
	return RequestFormat{azureAPIVersion: apiVersion}
}

func (f RequestFormat) ResolvePath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if f.azureAPIVersion == "" {
		return "/v1/" + path
	}
	return "/" + path + "?api-version=" + url.QueryEscape(f.azureAPIVersion)
}
