package s3export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
)

var _ portfolio.SnapshotSink = (*Store)(nil)

// Config parámetros del bucket de snapshots (AWS S3 o compatible: MinIO, LocalStack).
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // opcional
	PathStyle       bool
	AccessKeyID     string // opcional; si falta se usa la cadena de credenciales por defecto
	SecretAccessKey string
	SessionToken    string
	// Client opcional; permite inyectar un cliente ya configurado (tests).
	Client *s3.Client
}

// Store sube snapshots JSON de la vista a un único bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// New crea el destino S3 a partir de Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3export: bucket requerido")
	}
	if cfg.Client != nil {
		return &Store{client: cfg.Client, bucket: cfg.Bucket}, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3export: config aws: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { applyOptions(o, cfg) })
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// applyOptions ajusta el cliente al endpoint configurado. Los checksums solo se envían cuando la
// operación los exige: MinIO y LocalStack no aceptan cuerpos aws-chunked con trailer.
func applyOptions(o *s3.Options, cfg Config) {
	o.UsePathStyle = cfg.PathStyle
	if cfg.Endpoint != "" {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
}

// PutSnapshot sube body bajo name y devuelve la ubicación s3://bucket/key.
func (s *Store) PutSnapshot(ctx context.Context, name string, body []byte) (string, error) {
	key := strings.TrimPrefix(path.Clean("/"+name), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("s3export: nombre de objeto vacío")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("s3export: put %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
