package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/tendant/foxml-generator/pkg/foxml"
	"github.com/tendant/foxml-generator/pkg/generator"
	fsstorage "github.com/tendant/foxml-generator/pkg/generator/storage/fs"
	memorystorage "github.com/tendant/foxml-generator/pkg/generator/storage/memory"
	s3storage "github.com/tendant/foxml-generator/pkg/generator/storage/s3"
)

// DefaultFileName is where interactive answers are persisted.
const DefaultFileName = "generator.yaml"

// BytesPerKilobyte converts the configured size to bytes.
const BytesPerKilobyte = 1000

// Settings is the persisted parameter set of a generation run
type Settings struct {
	NumFiles        int    `yaml:"num_files" env:"GENERATOR_NUM_FILES" env-description:"Number of FOXML files generated from random data"`
	Versions        int    `yaml:"versions" env:"GENERATOR_VERSIONS" env-description:"Number of versions per datastream"`
	Random          bool   `yaml:"random" env:"GENERATOR_RANDOM" env-description:"Generate random content instead of using input files"`
	SizeKB          int64  `yaml:"size_kb" env:"GENERATOR_SIZE_KB" env-description:"Size of every random version in kilobytes"`
	TargetDirectory string `yaml:"target_directory" env:"GENERATOR_TARGET_DIRECTORY" env-description:"Directory receiving FOXML and content files"`
	ControlGroup    string `yaml:"control_group" env:"GENERATOR_CONTROL_GROUP" env-description:"Control group: MANAGED, INLINE_XML, EXTERNAL or REDIRECT"`
	InlineBase64    bool   `yaml:"inline_base64" env:"GENERATOR_INLINE_BASE64" env-description:"Embed managed random content as base64"`
	InputDirectory  string `yaml:"input_directory,omitempty" env:"GENERATOR_INPUT_DIRECTORY" env-description:"Directory holding external content files"`
	InputFileTypes  string `yaml:"input_filetypes,omitempty" env:"GENERATOR_INPUT_FILETYPES" env-description:"Comma separated file types, * for all"`
	Seed            int64  `yaml:"seed,omitempty" env:"GENERATOR_SEED" env-description:"Random seed, 0 for time based"`
	Owner           string `yaml:"owner,omitempty" env:"GENERATOR_OWNER" env-description:"Owner ID of generated objects"`
	Compress        string `yaml:"compress,omitempty" env:"GENERATOR_COMPRESS" env-description:"FOXML output compression: none, gzip or zstd"`
	ContentStore    string `yaml:"content_store,omitempty" env:"GENERATOR_CONTENT_STORE" env-description:"Where random content goes: file, memory or s3://bucket/prefix"`

	S3 S3Settings `yaml:"s3,omitempty"`
}

// S3Settings configures the s3 content store. Credentials are never persisted.
type S3Settings struct {
	Endpoint        string `yaml:"endpoint,omitempty" env:"GENERATOR_S3_ENDPOINT,AWS_S3_ENDPOINT" env-description:"Custom S3 endpoint (MinIO)"`
	Region          string `yaml:"region,omitempty" env:"GENERATOR_S3_REGION,AWS_REGION" env-description:"S3 region"`
	UsePathStyle    bool   `yaml:"use_path_style,omitempty" env:"GENERATOR_S3_USE_PATH_STYLE" env-description:"Use path-style S3 addressing"`
	CreateBucket    bool   `yaml:"create_bucket,omitempty" env:"GENERATOR_S3_CREATE_BUCKET" env-description:"Create the bucket if missing"`
	SSEAlgorithm    string `yaml:"sse_algorithm,omitempty" env:"GENERATOR_S3_SSE_ALGORITHM" env-description:"Server-side encryption: AES256 or aws:kms, empty for none"`
	SSEKMSKeyID     string `yaml:"sse_kms_key_id,omitempty" env:"GENERATOR_S3_SSE_KMS_KEY_ID" env-description:"KMS key ID for aws:kms encryption"`
	AccessKeyID     string `yaml:"-" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"AWS_SECRET_ACCESS_KEY"`
}

// Option applies configuration to a Settings instance.
type Option func(*Settings) error

// DefaultTargetDirectory is the default FOXML output location.
func DefaultTargetDirectory() string {
	return filepath.Join(os.TempDir(), "foxml-test-files")
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		NumFiles:        100,
		Versions:        1,
		Random:          true,
		SizeKB:          10,
		TargetDirectory: DefaultTargetDirectory(),
		ControlGroup:    foxml.ControlGroupManaged.Name(),
		InputFileTypes:  "*",
		Owner:           generator.DefaultOwnerID,
		Compress:        string(generator.CompressionNone),
		ContentStore:    "file",
	}
}

// Load constructs Settings by applying the supplied options on top of Defaults.
func Load(opts ...Option) (*Settings, error) {
	s := Defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&s); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// WithFile reads a configuration file (yaml, json, toml or env) followed by
// environment overrides.
func WithFile(path string) Option {
	return func(s *Settings) error {
		if err := cleanenv.ReadConfig(path, s); err != nil {
			return fmt.Errorf("failed to read configuration %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv applies GENERATOR_* environment overrides.
func WithEnv() Option {
	return func(s *Settings) error {
		if err := cleanenv.ReadEnv(s); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithSettings replaces the settings wholesale, e.g. with questionnaire answers.
func WithSettings(src Settings) Option {
	return func(s *Settings) error {
		*s = src
		return nil
	}
}

// EnvUsage describes the environment variables understood by WithEnv.
func EnvUsage() string {
	var s Settings
	text, err := cleanenv.GetDescription(&s, nil)
	if err != nil {
		return ""
	}
	return text
}

// Validate validates the settings
func (s *Settings) Validate() error {
	if s.TargetDirectory == "" {
		return errors.New("target_directory is required")
	}
	if s.Versions < 1 {
		return fmt.Errorf("versions must be at least 1, got %d", s.Versions)
	}
	if s.Random {
		if s.NumFiles < 0 {
			return fmt.Errorf("num_files must not be negative, got %d", s.NumFiles)
		}
		if s.SizeKB < 0 {
			return fmt.Errorf("size_kb must not be negative, got %d", s.SizeKB)
		}
	} else if s.InputDirectory == "" {
		return errors.New("input_directory is required when random is false")
	}
	if _, err := foxml.ParseControlGroup(s.ControlGroup); err != nil {
		return err
	}
	if _, err := generator.ParseCompression(s.Compress); err != nil {
		return err
	}
	if _, _, err := s.storeKind(); err != nil {
		return err
	}
	switch s.S3.SSEAlgorithm {
	case "", "AES256", "aws:kms":
	default:
		return fmt.Errorf("unsupported s3.sse_algorithm: %s (use 'AES256' or 'aws:kms')", s.S3.SSEAlgorithm)
	}
	if s.S3.SSEKMSKeyID != "" && s.S3.SSEAlgorithm != "aws:kms" {
		return errors.New("s3.sse_kms_key_id requires sse_algorithm aws:kms")
	}
	return nil
}

// Save writes the settings as YAML to path.
func (s *Settings) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", path, err)
	}
	return nil
}

// Marshal renders the settings as YAML.
func (s *Settings) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return data, nil
}

// Plan turns the settings into a generation plan. In external mode the input
// directory is scanned for sources.
func (s *Settings) Plan() (generator.Plan, error) {
	cg, err := foxml.ParseControlGroup(s.ControlGroup)
	if err != nil {
		return generator.Plan{}, err
	}
	plan := generator.Plan{
		Count:        s.NumFiles,
		Versions:     s.Versions,
		Random:       s.Random,
		Size:         s.SizeKB * BytesPerKilobyte,
		TargetDir:    s.TargetDirectory,
		ControlGroup: cg,
		InlineBase64: s.InlineBase64 && cg == foxml.ControlGroupManaged,
	}
	if !s.Random {
		sources, err := generator.CollectSources(s.InputDirectory, s.InputFileTypes)
		if err != nil {
			return generator.Plan{}, err
		}
		plan.Sources = sources
	}
	return plan, nil
}

// BuildGenerator creates a Generator for the settings
func (s *Settings) BuildGenerator(ctx context.Context, logger *slog.Logger) (*generator.Generator, error) {
	compression, err := generator.ParseCompression(s.Compress)
	if err != nil {
		return nil, err
	}

	store, err := s.buildContentStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build content store: %w", err)
	}

	options := []generator.Option{
		generator.WithContentStore(store),
		generator.WithCompression(compression),
	}
	if s.Owner != "" {
		options = append(options, generator.WithOwner(s.Owner))
	}
	if s.Seed != 0 {
		options = append(options, generator.WithSeed(s.Seed))
	}
	if logger != nil {
		options = append(options, generator.WithLogger(logger))
	}

	return generator.New(options...)
}

func (s *Settings) buildContentStore(ctx context.Context) (generator.ContentStore, error) {
	kind, target, err := s.storeKind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		bucket, prefix, _ := strings.Cut(target, "/")
		store, err := s3storage.New(ctx, s.S3Config(bucket, prefix))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := fsstorage.New(fsstorage.Config{BaseDir: s.TargetDirectory})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// S3Config maps the S3 settings to the s3 store configuration
func (s *Settings) S3Config(bucket, prefix string) s3storage.Config {
	return s3storage.Config{
		Region:                 s.S3.Region,
		Bucket:                 bucket,
		Prefix:                 prefix,
		AccessKeyID:            s.S3.AccessKeyID,
		SecretAccessKey:        s.S3.SecretAccessKey,
		Endpoint:               s.S3.Endpoint,
		UsePathStyle:           s.S3.UsePathStyle,
		EnableSSE:              s.S3.SSEAlgorithm != "",
		SSEAlgorithm:           s.S3.SSEAlgorithm,
		SSEKMSKeyID:            s.S3.SSEKMSKeyID,
		CreateBucketIfNotExist: s.S3.CreateBucket,
	}
}

// storeKind parses ContentStore: "file" (or empty), "memory" or
// "s3://bucket[/prefix]".
func (s *Settings) storeKind() (kind, target string, err error) {
	switch v := strings.TrimSpace(s.ContentStore); {
	case v == "" || v == "file" || v == "fs":
		return "file", "", nil
	case v == "memory" || v == "memory://":
		return "memory", "", nil
	case strings.HasPrefix(v, "s3://"):
		target = strings.Trim(strings.TrimPrefix(v, "s3://"), "/")
		if target == "" {
			return "", "", fmt.Errorf("S3 bucket name cannot be empty in content_store")
		}
		return "s3", target, nil
	default:
		return "", "", fmt.Errorf("unsupported content_store: %s (use 'file', 'memory' or 's3://bucket')", v)
	}
}
