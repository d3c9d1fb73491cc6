package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/sirahlabs/smartchat/cmd/mainconfig"
	appconfig "github.com/sirahlabs/smartchat/internal/config"
	"github.com/sirahlabs/smartchat/internal/hours"
	"github.com/sirahlabs/smartchat/internal/knowledge"
)

// objectPutter is the subset of the S3 client publish needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// problems lists configuration mistakes that load cleanly but misbehave at
// runtime.
func problems(b *knowledge.Bundle) []string {
	var out []string
	if err := hours.Validate(b.Business.WorkingHours.Schedule); err != nil {
		out = append(out, err.Error())
	}
	if b.Client.BotName == "" {
		out = append(out, "client config has no botName")
	}
	if b.Client.Mode == knowledge.ModeHybrid && !b.Client.FormSubmissionEnabled() {
		out = append(out, "hybrid mode without a form endpoint: leads will not reach the client form")
	}
	for _, it := range b.Business.Intents {
		if len(it.Keywords) == 0 {
			out = append(out, fmt.Sprintf("intent %q has no keywords", it.Name))
		}
	}
	return out
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the knowledge documents for mistakes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bundle, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), bundle)
		},
	}
}

func report(w io.Writer, b *knowledge.Bundle) error {
	found := problems(b)
	for _, p := range found {
		fmt.Fprintf(w, "warning: %s\n", p)
	}
	fmt.Fprintf(w, "%s: %d services, %d doctors, %d faqs, %d intents\n",
		b.Business.BusinessName, len(b.Business.Services), len(b.Business.Doctors), len(b.Business.FAQ), len(b.Business.Intents))
	return nil
}

func newPublishCmd(opts *rootOptions, cfg *appconfig.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Validate the knowledge documents and upload them to KNOWLEDGE_S3_BUCKET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cfg.UseS3Knowledge() {
				return fmt.Errorf("KNOWLEDGE_S3_BUCKET is not set")
			}
			bundle, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if err := report(cmd.OutOrStdout(), bundle); err != nil {
				return err
			}
			if len(problems(bundle)) > 0 && !force {
				return fmt.Errorf("refusing to publish documents with warnings (use --force)")
			}
			awsCfg, err := mainconfig.LoadAWSConfig(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("load aws config: %w", err)
			}
			clients := mainconfig.NewAWSClients(awsCfg, cfg)
			return publish(cmd.Context(), clients.S3, cfg.KnowledgeS3Bucket, cfg.KnowledgeS3Prefix, cmd.OutOrStdout(),
				opts.clientConfig, opts.businessInfo)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "publish even when validation reports warnings")
	return cmd
}

// publish uploads each file under prefix using its base name, the layout
// S3Source reads from.
func publish(ctx context.Context, client objectPutter, bucket, prefix string, w io.Writer, files ...string) error {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		key := filepath.Base(f)
		if prefix != "" {
			key = path.Join(prefix, key)
		}
		if _, err := client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		}); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		fmt.Fprintf(w, "uploaded s3://%s/%s\n", bucket, key)
	}
	return nil
}
