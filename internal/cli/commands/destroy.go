package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/internal/orchestrator"
	"github.com/alvesdmateus/auto-deployer/pkg/config"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy the AWS infrastructure associated with a repository",
	Long:  `Tear down the App Runner infrastructure previously provisioned for a repository. The service name is recomputed from the repository URL; the source is never re-fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL, _ := cmd.Flags().GetString("repo-url")
		ecrRepoName, _ := cmd.Flags().GetString("ecr-repo-name")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := newLogger(cfg)
		logger.Info().Msg("Autodeployment system - destroy initialized")

		region := resolveRegion(cmd, cfg)
		ctx := cmd.Context()

		coordinator, err := buildCoordinator(ctx, cfg, region, logger)
		if err != nil {
			return err
		}

		if err := coordinator.Destroy(ctx, orchestrator.DestroyRequest{
			RepoURL:             repoURL,
			ImageRepositoryName: ecrRepoName,
			Region:              region,
		}); err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}

		fmt.Println("Destroy successful!")
		return nil
	},
}

func init() {
	destroyCmd.Flags().String("repo-url", "", "The Git repository URL that was deployed")
	destroyCmd.Flags().String("ecr-repo-name", "", "The ECR repository used by the deployment")
	destroyCmd.Flags().String("aws-region", config.DefaultRegion, "The AWS region the service runs in")

	destroyCmd.MarkFlagRequired("repo-url")
	destroyCmd.MarkFlagRequired("ecr-repo-name")
}
