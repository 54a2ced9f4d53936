package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gocache "github.com/patrickmn/go-cache"

	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/hansard"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/store"
)

// S3Provider reads extracted transcripts from an object store. Each document
// is one JSON object under "<id>.json". Fetched documents are cached briefly
// so window lookups do not refetch the object per citation.
type S3Provider struct {
	client *s3.Client
	bucket string
	cache  *gocache.Cache
}

func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

func NewS3Provider(client *s3.Client, bucket string) *S3Provider {
	return &S3Provider{
		client: client,
		bucket: bucket,
		cache:  gocache.New(10*time.Minute, 30*time.Minute),
	}
}

var _ Provider = (*S3Provider)(nil)

type documentObject struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	ContentHash string   `json:"content_hash"`
	Chamber     string   `json:"chamber"`
	SittingDate string   `json:"sitting_date"` // YYYY-MM-DD
	Pages       []struct {
		Number int      `json:"number"`
		Lines  []string `json:"lines"`
	} `json:"pages"`
}

func (p *S3Provider) Document(ctx context.Context, id string) (*hansard.RawDocument, error) {
	if cached, ok := p.cache.Get(id); ok {
		return cached.(*hansard.RawDocument), nil
	}
	key := id + ".json"
	buf := new(bytes.Buffer)
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("get %s from s3: %w", key, err)
		}
		defer result.Body.Close()

		buf.Reset()
		if _, err := io.Copy(buf, result.Body); err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var obj documentObject
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	doc, err := obj.toDocument()
	if err != nil {
		return nil, err
	}
	p.cache.SetDefault(id, doc)
	return doc, nil
}

func (p *S3Provider) Window(ctx context.Context, ref hansard.SourceRef, marginLines int) (string, error) {
	doc, err := p.Document(ctx, ref.DocumentID)
	if err != nil {
		return "", err
	}
	return store.WindowFromDocument(doc, ref, marginLines)
}

func (o *documentObject) toDocument() (*hansard.RawDocument, error) {
	doc := hansard.RawDocument{
		ID:          o.ID,
		URL:         o.URL,
		ContentHash: o.ContentHash,
		Chamber:     o.Chamber,
	}
	if o.SittingDate != "" {
		d, err := time.Parse("2006-01-02", o.SittingDate)
		if err != nil {
			return nil, fmt.Errorf("parse sitting date %q: %w", o.SittingDate, err)
		}
		doc.SittingDate = d
	}
	for _, page := range o.Pages {
		doc.Pages = append(doc.Pages, hansard.Page{Number: page.Number, Lines: page.Lines})
	}
	return &doc, nil
}
