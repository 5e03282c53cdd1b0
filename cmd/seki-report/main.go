package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"seki/internal/config"
	"seki/internal/eval"
	"seki/internal/report"
	"seki/internal/runinfo"
	"seki/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// FileContent holds inlined run file content.
type FileContent struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// RunEntry represents one harness run in the manifest.
type RunEntry struct {
	ID             string                 `json:"id"`
	Dir            string                 `json:"dir"`
	Timestamp      string                 `json:"timestamp"`
	Model          string                 `json:"model"`
	CasesPath      string                 `json:"cases_path"`
	Suites         []report.SuiteCount    `json:"suites"`
	Summary        eval.Summary           `json:"summary"`
	ArchiveName    string                 `json:"archive_name"`
	ArchiveCodec   string                 `json:"archive_codec"`
	ArchiveURL     string                 `json:"archive_url"`
	SummaryURL     string                 `json:"summary_url"`
	UploadLocation string                 `json:"upload_location"`
	CI             *runinfo.BasicInfo     `json:"ci,omitempty"`
	Files          map[string]FileContent `json:"files"`
}

// Manifest is the aggregated JSON payload for a set of runs.
type Manifest struct {
	GeneratedAt string     `json:"generated_at"`
	Source      string     `json:"source"`
	Runs        []RunEntry `json:"runs"`
}

type loadOptions struct {
	MaxBytes              int
	ArtifactPublicBaseURL string
}

type publishOptions struct {
	S3            config.S3Config
	PublicBaseURL string
}

func main() {
	input := flag.String("input", "reports", "input directory or s3://bucket/prefix")
	output := flag.String("output", "site", "output directory for report.json")
	configPath := flag.String("config", "config.yaml", "path to config file (for S3 access)")
	maxBytes := flag.Int("max-bytes", 64*1024, "max bytes to read per run file")
	publishEndpoint := flag.String("publish-endpoint", "", "S3-compatible endpoint for publishing report.json (for example Cloudflare R2)")
	publishRegion := flag.String("publish-region", "auto", "region for publish endpoint")
	publishBucket := flag.String("publish-bucket", "", "target bucket for publishing the report manifest")
	publishPrefix := flag.String("publish-prefix", "", "target prefix for publishing the report manifest")
	publishAccessKey := flag.String("publish-access-key-id", "", "access key for publishing the report manifest")
	publishSecret := flag.String("publish-secret-access-key", "", "secret key for publishing the report manifest")
	publishSessionToken := flag.String("publish-session-token", "", "session token for publishing the report manifest")
	publishUsePathStyle := flag.Bool("publish-use-path-style", true, "whether to use path-style S3 addressing for publish endpoint")
	publishPublicBaseURL := flag.String("publish-public-base-url", "", "public base URL for the published manifest")
	artifactPublicBaseURL := flag.String("artifact-public-base-url", "", "public HTTP(S) base URL used to derive per-run summary/archive links from s3 upload locations")
	flag.Parse()

	opts := loadOptions{
		MaxBytes:              *maxBytes,
		ArtifactPublicBaseURL: strings.TrimSpace(*artifactPublicBaseURL),
	}
	ctx := context.Background()

	var runs []RunEntry
	var err error
	if strings.HasPrefix(*input, "s3://") {
		cfg, loadErr := config.Load(*configPath)
		if loadErr != nil {
			fail("load config: %v", loadErr)
		}
		bucket, prefix, parseErr := parseS3URI(*input)
		if parseErr != nil {
			fail("parse s3 input: %v", parseErr)
		}
		if !cfg.Storage.S3.Enabled {
			fail("s3 input requested but storage.s3.enabled is false")
		}
		runs, err = loadS3Runs(ctx, cfg.Storage.S3, bucket, prefix, opts)
	} else {
		runs, err = loadLocalRuns(*input, opts)
	}
	if err != nil {
		fail("load runs: %v", err)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp > runs[j].Timestamp
	})

	manifest := Manifest{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Source:      *input,
		Runs:        runs,
	}
	if err := writeJSON(*output, manifest); err != nil {
		fail("write json: %v", err)
	}

	publishCfg := publishOptions{
		S3: config.S3Config{
			Enabled:         strings.TrimSpace(*publishBucket) != "",
			Endpoint:        strings.TrimSpace(*publishEndpoint),
			Region:          strings.TrimSpace(*publishRegion),
			Bucket:          strings.TrimSpace(*publishBucket),
			Prefix:          strings.TrimSpace(*publishPrefix),
			AccessKeyID:     strings.TrimSpace(*publishAccessKey),
			SecretAccessKey: strings.TrimSpace(*publishSecret),
			SessionToken:    strings.TrimSpace(*publishSessionToken),
			UsePathStyle:    *publishUsePathStyle,
		},
		PublicBaseURL: strings.TrimSpace(*publishPublicBaseURL),
	}
	manifestURL, err := publishManifest(ctx, publishCfg, *output)
	if err != nil {
		fail("publish manifest: %v", err)
	}
	if manifestURL != "" {
		fmt.Printf("published report manifest to %s\n", manifestURL)
	}

	fmt.Printf("report manifest written to %s (%d run(s))\n", filepath.Join(*output, manifestName), len(runs))
}

const manifestName = "report.json"

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadLocalRuns(root string, opts loadOptions) ([]RunEntry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	runs := make([]RunEntry, 0, len(dirs))
	for _, dirEntry := range dirs {
		if !dirEntry.IsDir() {
			continue
		}
		dir := filepath.Join(root, dirEntry.Name())
		if _, err := os.Stat(filepath.Join(dir, report.SummaryName)); err != nil {
			continue
		}
		entry, err := readRunFromDir(dir, opts)
		if err != nil {
			continue
		}
		entry.Dir = dir
		if strings.TrimSpace(entry.ID) == "" {
			entry.ID = dirEntry.Name()
		}
		runs = append(runs, entry)
	}
	return runs, nil
}

func readRunFromDir(dir string, opts loadOptions) (RunEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, report.SummaryName))
	if err != nil {
		return RunEntry{}, err
	}
	var summary report.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return RunEntry{}, err
	}
	files := map[string]FileContent{}
	files[report.DetailsName] = mustReadFile(filepath.Join(dir, report.DetailsName), opts.MaxBytes)
	files[report.CasesName] = mustReadFile(filepath.Join(dir, report.CasesName), opts.MaxBytes)
	files[report.GrammarName] = mustReadFile(filepath.Join(dir, report.GrammarName), opts.MaxBytes)
	files["README.md"] = mustReadFile(filepath.Join(dir, "README.md"), opts.MaxBytes)
	if name := strings.TrimSpace(summary.ArchiveName); name != "" {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			files[name] = FileContent{Name: name, Content: "(binary)", Truncated: true}
		}
	}
	summaryURL, archiveURL := deriveObjectURLs(summary.UploadLocation, summary.ArchiveName, opts.ArtifactPublicBaseURL)
	return RunEntry{
		ID:             summary.RunID,
		Timestamp:      summary.Timestamp,
		Model:          summary.Model,
		CasesPath:      summary.CasesPath,
		Suites:         summary.Suites,
		Summary:        summary.Summary,
		ArchiveName:    summary.ArchiveName,
		ArchiveCodec:   summary.ArchiveCodec,
		ArchiveURL:     archiveURL,
		SummaryURL:     summaryURL,
		UploadLocation: summary.UploadLocation,
		CI:             summary.CI,
		Files:          files,
	}, nil
}

func mustReadFile(path string, maxBytes int) FileContent {
	content, truncated, err := readFileLimited(path, maxBytes)
	if err != nil {
		return FileContent{Name: filepath.Base(path)}
	}
	return FileContent{Name: filepath.Base(path), Content: content, Truncated: truncated}
}

func readFileLimited(path string, maxBytes int) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer util.CloseWithErr(f, "report input")
	limit := int64(maxBytes) + 1
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", false, err
	}
	truncated := len(data) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}
	return string(data), truncated, nil
}

func writeJSON(output string, manifest Manifest) error {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(output, manifestName))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "report output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(manifest)
}

func parseS3URI(input string) (bucket string, prefix string, err error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "s3://") {
		return "", "", fmt.Errorf("not an s3 URI: %q", input)
	}
	return parseObjectURI(input)
}

// parseObjectURI splits an s3:// or gs:// URI into bucket and prefix.
// Upload locations come from either storage backend.
func parseObjectURI(input string) (bucket string, prefix string, err error) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	var rest string
	switch {
	case strings.HasPrefix(lower, "s3://"):
		rest = trimmed[len("s3://"):]
	case strings.HasPrefix(lower, "gs://"):
		rest = trimmed[len("gs://"):]
	default:
		return "", "", fmt.Errorf("unsupported object URI %q", input)
	}
	if rest == "" {
		return "", "", fmt.Errorf("missing bucket in %q", input)
	}
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	prefix = ""
	if len(parts) == 2 {
		prefix = strings.TrimPrefix(parts[1], "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
	}
	return bucket, prefix, nil
}

func loadS3Runs(ctx context.Context, cfg config.S3Config, bucket, prefix string, opts loadOptions) ([]RunEntry, error) {
	client, err := s3ClientFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	keys, objectSet, err := listSummaryKeys(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	runs := make([]RunEntry, 0, len(keys))
	for _, key := range keys {
		dir := strings.TrimSuffix(key, "/"+report.SummaryName)
		entry, err := readRunFromS3(ctx, client, bucket, dir, opts, objectSet)
		if err != nil {
			continue
		}
		entry.Dir = "s3://" + bucket + "/" + dir
		if strings.TrimSpace(entry.ID) == "" {
			entry.ID = filepath.Base(dir)
		}
		runs = append(runs, entry)
	}
	return runs, nil
}

func listSummaryKeys(ctx context.Context, client *s3.Client, bucket, prefix string) ([]string, map[string]struct{}, error) {
	var keys []string
	objectSet := make(map[string]struct{})
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objectSet[key] = struct{}{}
			if strings.HasSuffix(key, "/"+report.SummaryName) {
				keys = append(keys, key)
			}
		}
	}
	return keys, objectSet, nil
}

func readRunFromS3(ctx context.Context, client *s3.Client, bucket, dir string, opts loadOptions, objectSet map[string]struct{}) (RunEntry, error) {
	summaryData, _, err := readObjectLimited(ctx, client, bucket, dir+"/"+report.SummaryName, opts.MaxBytes)
	if err != nil {
		return RunEntry{}, err
	}
	var summary report.RunSummary
	if err := json.Unmarshal([]byte(summaryData), &summary); err != nil {
		return RunEntry{}, err
	}
	files := map[string]FileContent{}
	files[report.DetailsName] = readObjectFile(ctx, client, bucket, dir+"/"+report.DetailsName, opts.MaxBytes)
	files[report.CasesName] = readObjectFile(ctx, client, bucket, dir+"/"+report.CasesName, opts.MaxBytes)
	files[report.GrammarName] = readObjectFile(ctx, client, bucket, dir+"/"+report.GrammarName, opts.MaxBytes)
	files["README.md"] = readObjectFile(ctx, client, bucket, dir+"/README.md", opts.MaxBytes)
	if name := strings.TrimSpace(summary.ArchiveName); name != "" {
		if _, ok := objectSet[dir+"/"+name]; ok {
			files[name] = FileContent{Name: name, Content: "(binary)", Truncated: true}
		}
	}
	summaryURL, archiveURL := deriveObjectURLs(summary.UploadLocation, summary.ArchiveName, opts.ArtifactPublicBaseURL)
	return RunEntry{
		ID:             summary.RunID,
		Timestamp:      summary.Timestamp,
		Model:          summary.Model,
		CasesPath:      summary.CasesPath,
		Suites:         summary.Suites,
		Summary:        summary.Summary,
		ArchiveName:    summary.ArchiveName,
		ArchiveCodec:   summary.ArchiveCodec,
		ArchiveURL:     archiveURL,
		SummaryURL:     summaryURL,
		UploadLocation: summary.UploadLocation,
		CI:             summary.CI,
		Files:          files,
	}, nil
}

func readObjectFile(ctx context.Context, client *s3.Client, bucket, key string, maxBytes int) FileContent {
	content, truncated, err := readObjectLimited(ctx, client, bucket, key, maxBytes)
	if err != nil {
		return FileContent{Name: filepath.Base(key)}
	}
	return FileContent{Name: filepath.Base(key), Content: content, Truncated: truncated}
}

func readObjectLimited(ctx context.Context, client *s3.Client, bucket, key string, maxBytes int) (string, bool, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") || errors.As(err, &nsk) {
			return "", false, fmt.Errorf("missing object %s", key)
		}
		return "", false, err
	}
	defer util.CloseWithErr(resp.Body, "s3 response body")
	limit := int64(maxBytes) + 1
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", false, err
	}
	truncated := len(data) > maxBytes
	if truncated {
		data = data[:maxBytes]
	}
	return string(data), truncated, nil
}

func s3ClientFromConfig(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		//nolint:staticcheck // AWS SDK v2 global endpoint resolver is deprecated, but required for custom S3 endpoints.
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, _ string, _ ...any) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				//nolint:staticcheck // AWS SDK v2 global endpoint resolver is deprecated, but required for custom S3 endpoints.
				return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
			}
			//nolint:staticcheck // AWS SDK v2 global endpoint resolver is deprecated, but required for custom S3 endpoints.
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		//nolint:staticcheck // AWS SDK v2 global endpoint resolver is deprecated, but required for custom S3 endpoints.
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" || cfg.SessionToken != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return client, nil
}

func deriveObjectURLs(uploadLocation, archiveName, artifactPublicBaseURL string) (summaryURL string, archiveURL string) {
	base := strings.TrimSpace(uploadLocation)
	if base == "" {
		return "", ""
	}
	summaryURL = deriveUploadObjectURL(base, report.SummaryName, artifactPublicBaseURL)
	if strings.TrimSpace(archiveName) != "" {
		archiveURL = deriveUploadObjectURL(base, archiveName, artifactPublicBaseURL)
	}
	return summaryURL, archiveURL
}

func deriveUploadObjectURL(uploadLocation, name, artifactPublicBaseURL string) string {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return ""
	}
	trimmedUpload := strings.TrimSpace(uploadLocation)
	if trimmedUpload == "" {
		return ""
	}
	if isHTTPURL(trimmedUpload) {
		return objectURL(trimmedUpload, trimmedName)
	}
	publicBase := strings.TrimSpace(artifactPublicBaseURL)
	if publicBase == "" {
		return ""
	}
	_, prefix, err := parseObjectURI(trimmedUpload)
	if err != nil {
		return ""
	}
	key := objectKey(prefix, trimmedName)
	if strings.TrimSpace(key) == "" {
		return ""
	}
	return objectURL(publicBase, key)
}

func isHTTPURL(url string) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func objectURL(base, name string) string {
	trimmedBase := strings.TrimRight(strings.TrimSpace(base), "/")
	trimmedName := strings.TrimLeft(strings.TrimSpace(name), "/")
	if trimmedBase == "" || trimmedName == "" {
		return ""
	}
	return trimmedBase + "/" + trimmedName
}

func publishManifest(ctx context.Context, opts publishOptions, output string) (string, error) {
	if !opts.S3.Enabled {
		return "", nil
	}
	if strings.TrimSpace(opts.S3.Bucket) == "" {
		return "", fmt.Errorf("publish bucket is required when publish is enabled")
	}
	client, err := s3ClientFromConfig(ctx, opts.S3)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(output, manifestName))
	if err != nil {
		return "", err
	}
	key := objectKey(opts.S3.Prefix, manifestName)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(opts.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(opts.PublicBaseURL) != "" {
		return objectURL(opts.PublicBaseURL, key), nil
	}
	return fmt.Sprintf("s3://%s/%s", opts.S3.Bucket, key), nil
}

func objectKey(prefix, name string) string {
	trimmedPrefix := strings.Trim(prefix, "/")
	trimmedName := strings.TrimLeft(strings.TrimSpace(name), "/")
	if trimmedPrefix == "" {
		return trimmedName
	}
	return trimmedPrefix + "/" + trimmedName
}
