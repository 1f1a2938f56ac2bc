// Package fetch abstracts downloading a remote resource to a local file,
// keeping the resource cache decoupled from any particular HTTP stack.
package fetch

import "context"

// Downloader fetches the content at url and writes it to dstPath,
// overwriting or creating the file as needed.
type Downloader interface {
	Download(ctx context.Context, url, dstPath string) error
}
