package publisher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_pipeline/config"
	"auto_blog_pipeline/logging"
)

const sampleBody = "# My Title\n\nBody text\n\n## Why Loops Matter\n\nShort loops make it cheap to be wrong."

func TestExtractAndStripTitle(t *testing.T) {
	body := "# My Title\n\nBody text"
	assert.Equal(t, "My Title", ExtractTitle(body))

	stripped := StripTitle(body)
	assert.Equal(t, "Body text", stripped)
	for _, line := range strings.Split(stripped, "\n") {
		assert.False(t, strings.HasPrefix(line, "# "))
	}
}

func TestExtractTitle_Default(t *testing.T) {
	assert.Equal(t, "Untitled Post", ExtractTitle("no heading here\n## Only H2"))
}

func TestTagsFor(t *testing.T) {
	base := []string{"technical-leadership"}
	assert.Equal(t, []string{"technical-leadership", "personal", "insights"}, TagsFor("personal_insight", base))
	assert.Equal(t, []string{"technical-leadership", "tutorial", "how-to"}, TagsFor("technical_howto", base))
	assert.Equal(t, []string{"technical-leadership", "engineering"}, TagsFor("hybrid", base))
	assert.Equal(t, []string{"technical-leadership"}, base, "base slice is not modified")
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "short thesis", description("  short thesis "))
	long := strings.Repeat("a", 200)
	got := description(long)
	assert.Equal(t, strings.Repeat("a", 150)+"...", got)
}

func TestFinalize(t *testing.T) {
	out, err := Finalize(Article{
		Body:        sampleBody,
		Thesis:      "Small loops beat big plans.",
		ContentType: "personal_insight",
		Review: &ReviewSummary{
			QualityScore:      8,
			VoicePreserved:    true,
			ConclusionQuality: "strong",
			ReadyToPublish:    true,
			Notes:             "Tight and personal.",
		},
	}, Options{Date: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "---\n"))

	fm, body, err := SplitFrontmatter(out)
	require.NoError(t, err)
	assert.Equal(t, Frontmatter{
		Title:       "My Title",
		Date:        "2026-10-18",
		Author:      "Adam",
		Tags:        []string{"technical-leadership", "personal", "insights"},
		Description: "Small loops beat big plans.",
	}, fm)

	assert.Contains(t, body, "<!-- \nPipeline Review:\n- Quality Score: 8/10\n- Content Type: personal_insight\n")
	assert.Contains(t, body, "- Voice Preserved: true\n- Conclusion Quality: strong\n- Status: ✅ Ready to Publish\n- Notes: Tight and personal.\n-->")
	assert.Contains(t, body, "## Why Loops Matter")
	assert.NotContains(t, body, "# My Title")
}

func TestFinalize_NeedsReviewAndNoReview(t *testing.T) {
	out, err := Finalize(Article{Body: sampleBody, Review: &ReviewSummary{QualityScore: 5.5, Notes: "ends --> early"}}, Options{Author: "Sam"})
	require.NoError(t, err)
	assert.Contains(t, out, "- Quality Score: 5.5/10")
	assert.Contains(t, out, "⚠️ Needs Review")
	assert.Contains(t, out, "- Notes: ends -> early")
	assert.Contains(t, out, "author: Sam")

	out, err = Finalize(Article{Body: sampleBody}, Options{})
	require.NoError(t, err)
	assert.NotContains(t, out, "<!--")
}

func TestSplitFrontmatter_NoFrontmatter(t *testing.T) {
	fm, body, err := SplitFrontmatter("# Title\n\ntext")
	require.NoError(t, err)
	assert.Empty(t, fm.Title)
	assert.Equal(t, "# Title\n\ntext", body)
}

func TestRenderHTML(t *testing.T) {
	post, err := Finalize(Article{
		Body:   sampleBody + "\n\n| a | b |\n|---|---|\n| 1 | 2 |\n",
		Review: &ReviewSummary{QualityScore: 9, ReadyToPublish: true},
	}, Options{})
	require.NoError(t, err)

	html, err := RenderHTML(post)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(html, "<h1>My Title</h1>\n"))
	assert.Contains(t, html, "<h2>Why Loops Matter</h2>")
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "Pipeline Review")
	assert.NotContains(t, html, "title:")
}

func TestRewriteImageRefs(t *testing.T) {
	md := "![a](img/x.png) and ![b](https://e.com/y.png) and ![c](data:abc)"
	out, err := RewriteImageRefs(md, func(ref string) (string, error) {
		return "https://cdn/" + ref, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "![a](https://cdn/img/x.png) and ![b](https://e.com/y.png) and ![c](data:abc)", out)

	_, err = RewriteImageRefs(md, func(string) (string, error) { return "", errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(data))
	return &s3.PutObjectOutput{}, nil
}

func TestAssetPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "my-post"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my-post", "hero.png"), []byte("hero-bytes"), 0o644))
	mdPath := filepath.Join(dir, "my-post.md")
	md := "![Hero Image](my-post/hero.png)\n\ntext\n\n![again](my-post/hero.png)\n"
	require.NoError(t, os.WriteFile(mdPath, []byte(md), 0o644))

	putter := &fakePutter{}
	pub := NewAssetPublisherWithClient(putter, config.AssetsConfig{
		S3Bucket:  "blog-assets",
		S3Prefix:  "/posts/",
		PublicURL: "https://cdn.example.com/",
	}, logging.Discard())

	out, err := pub.Publish(context.Background(), mdPath)
	require.NoError(t, err)

	require.Len(t, putter.inputs, 1, "the same reference is uploaded once")
	assert.Equal(t, "blog-assets", aws.ToString(putter.inputs[0].Bucket))
	assert.Equal(t, "posts/my-post/hero.png", aws.ToString(putter.inputs[0].Key))
	assert.Equal(t, "image/png", aws.ToString(putter.inputs[0].ContentType))
	assert.Equal(t, "hero-bytes", putter.bodies[0])
	assert.Equal(t, "![Hero Image](https://cdn.example.com/posts/my-post/hero.png)\n\ntext\n\n![again](https://cdn.example.com/posts/my-post/hero.png)\n", out)
}

func TestAssetPublisher_MissingFile(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "post.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("![x](missing.png)"), 0o644))

	pub := NewAssetPublisherWithClient(&fakePutter{}, config.AssetsConfig{S3Bucket: "b", PublicURL: "https://cdn"}, logging.Discard())
	_, err := pub.Publish(context.Background(), mdPath)
	assert.Error(t, err)
}

func TestNewAssetPublisher_RequiresBucket(t *testing.T) {
	_, err := NewAssetPublisher(context.Background(), config.AssetsConfig{}, logging.Discard())
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
}
