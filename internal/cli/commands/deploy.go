package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
	"github.com/alvesdmateus/auto-deployer/pkg/config"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy an application from a repository to AWS",
	Long:  `Deploy an application by cloning its repository, detecting the framework, building and pushing a container image to ECR, and provisioning AWS App Runner infrastructure with Terraform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL, _ := cmd.Flags().GetString("repo-url")
		prompt, _ := cmd.Flags().GetString("prompt")
		ecrRepoName, _ := cmd.Flags().GetString("ecr-repo-name")

		if !promptSupported(prompt) {
			fmt.Println("Error: This tool currently only supports deploying Flask applications to AWS.")
			fmt.Println("Please ensure your prompt includes the words 'Flask' and 'AWS'.")
			return fmt.Errorf("deployment target not supported")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := newLogger(cfg)
		logger.Info().Msg("Autodeployment system initialized")

		region := resolveRegion(cmd, cfg)
		ctx := cmd.Context()

		coordinator, err := buildCoordinator(ctx, cfg, region, logger)
		if err != nil {
			return err
		}

		result, err := coordinator.Deploy(ctx, orchestrator.DeploymentRequest{
			RepoURL:             repoURL,
			IntentText:          prompt,
			ImageRepositoryName: ecrRepoName,
			Region:              region,
		})
		if err != nil {
			return fmt.Errorf("deployment failed: %w", err)
		}

		if result.ServiceURL != "" {
			fmt.Printf("Deployment successful! Service URL: %s\n", result.ServiceURL)
		} else {
			fmt.Println("Deployment finished, but the service URL was not found in the provisioning output.")
		}
		return nil
	},
}

// promptSupported is a simple keyword check: the intent must loosely mention
// both the framework and the target cloud before any work starts.
func promptSupported(prompt string) bool {
	lower := strings.ToLower(prompt)
	return strings.Contains(lower, "flask") && strings.Contains(lower, "aws")
}

func init() {
	deployCmd.Flags().String("repo-url", "", "The Git repository URL to deploy")
	deployCmd.Flags().String("prompt", "", "The natural language prompt describing the deployment target")
	deployCmd.Flags().String("ecr-repo-name", "", "The ECR repository to push the image to")
	deployCmd.Flags().String("aws-region", config.DefaultRegion, "The AWS region to deploy into")

	deployCmd.MarkFlagRequired("repo-url")
	deployCmd.MarkFlagRequired("prompt")
	deployCmd.MarkFlagRequired("ecr-repo-name")
}
