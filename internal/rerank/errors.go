package rerank

import "fmt"

var errRerankerDisabled = fmt.Errorf("rerank: reranker is disabled")

func errUnsupportedProvider(name string) error {
	return fmt.Errorf("rerank: unsupported provider %q (supported: local, mock, disabled)", name)
}
