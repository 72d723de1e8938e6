package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains settings for downloading archives from S3.
type S3Config struct {
	AWSProfile          string
	ExpectedBucketOwner *string
	Concurrency         int
}

// ForS3 returns the [s3] section.
func (l *Loader) ForS3() (c S3Config) {
	sec := l.section("s3")
	if sec == nil {
		return c
	}

	c.AWSProfile = sec.Key("profile").Value()
	if sec.HasKey("expected-bucket-owner") {
		c.ExpectedBucketOwner = aws.String(sec.Key("expected-bucket-owner").Value())
	}
	c.Concurrency = sec.Key("concurrency").MustInt(0)

	return
}

// ForS3 calls Loader.ForS3 on the DefaultLoader instance.
func ForS3() S3Config {
	return DefaultLoader.ForS3()
}

// NewS3Client returns an S3 client using Loader.Profile, falling back to the [s3] profile setting.
//
// The client is created once and cached.
func (l *Loader) NewS3Client(ctx context.Context, optFns ...func(*s3.Options)) (*s3.Client, error) {
	if c, ok := l.s3clientCache.Load("s3"); ok {
		return c.(*s3.Client), nil
	}

	profile := l.Profile
	if profile == "" {
		profile = l.ForS3().AWSProfile
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profile))
	if err != nil {
		return nil, err
	}

	c := s3.NewFromConfig(cfg, optFns...)
	l.s3clientCache.Store("s3", c)
	return c, nil
}

// NewS3Client calls Loader.NewS3Client on the DefaultLoader instance.
func NewS3Client(ctx context.Context, optFns ...func(*s3.Options)) (*s3.Client, error) {
	return DefaultLoader.NewS3Client(ctx, optFns...)
}
