package publisher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"auto_blog_pipeline/config"
	"auto_blog_pipeline/logging"
)

// ObjectPutter is the subset of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AssetPublisher uploads a post's local images to S3 and rewrites the
// markdown to point at the uploaded copies.
type AssetPublisher struct {
	client    ObjectPutter
	bucket    string
	prefix    string
	publicURL string
	logger    *logging.Logger
}

// NewAssetPublisher builds an S3-backed publisher from the default AWS
// credential chain.
func NewAssetPublisher(ctx context.Context, cfg config.AssetsConfig, logger *logging.Logger) (*AssetPublisher, error) {
	if cfg.S3Bucket == "" {
		return nil, &config.ConfigurationError{Field: "assets.s3_bucket", Hint: "set assets.s3_bucket or PIPELINE_ASSETS_S3_BUCKET"}
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, awsCfg.Region)
	}
	return NewAssetPublisherWithClient(client, cfg, logger), nil
}

// NewAssetPublisherWithClient uses an existing client; PublicURL must be set
// for the returned URLs to be meaningful.
func NewAssetPublisherWithClient(client ObjectPutter, cfg config.AssetsConfig, logger *logging.Logger) *AssetPublisher {
	return &AssetPublisher{
		client:    client,
		bucket:    cfg.S3Bucket,
		prefix:    strings.Trim(cfg.S3Prefix, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}
}

// Upload stores one local file under key and returns its public URL.
func (p *AssetPublisher) Upload(ctx context.Context, localPath, key string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	if p.prefix != "" {
		key = path.Join(p.prefix, key)
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}
	url := p.publicURL + "/" + key
	p.logger.Infof("[assets] uploaded %s -> %s", localPath, url)
	return url, nil
}

// Publish uploads every local image referenced by the markdown file and
// returns the markdown with references rewritten. Relative references are
// resolved against the markdown file's directory and keep their relative
// path as the object key.
func (p *AssetPublisher) Publish(ctx context.Context, markdownPath string) (string, error) {
	md, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", err
	}
	baseDir := filepath.Dir(markdownPath)
	uploaded := map[string]string{}
	return RewriteImageRefs(string(md), func(ref string) (string, error) {
		if url, ok := uploaded[ref]; ok {
			return url, nil
		}
		localPath := ref
		key := filepath.ToSlash(filepath.Clean(ref))
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(baseDir, ref)
		} else {
			key = filepath.Base(ref)
		}
		url, err := p.Upload(ctx, localPath, key)
		if err != nil {
			return "", err
		}
		uploaded[ref] = url
		return url, nil
	})
}

var imageRefPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

// RewriteImageRefs replaces the target of every local markdown image
// reference with resolve's result. Remote (http, https) and data: references
// are left as they are.
func RewriteImageRefs(md string, resolve func(ref string) (string, error)) (string, error) {
	matches := imageRefPattern.FindAllStringSubmatchIndex(md, -1)
	if len(matches) == 0 {
		return md, nil
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[2], m[3]
		b.WriteString(md[last:start])
		ref := strings.TrimSpace(md[start:end])
		if isRemoteRef(ref) {
			b.WriteString(md[start:end])
			last = end
			continue
		}
		replacement, err := resolve(ref)
		if err != nil {
			return "", err
		}
		b.WriteString(replacement)
		last = end
	}
	b.WriteString(md[last:])
	return b.String(), nil
}

func isRemoteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:")
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	}
	return "application/octet-stream"
}
