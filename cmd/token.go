// cmd/token.go
package cmd

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"example.com/planner/services/calendar/config"
	"example.com/planner/services/calendar/internal/database"
	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"

	"github.com/spf13/cobra"
)

var (
	tokenName      string
	tokenUserEmail string
	expirationDays int

	userEmail     string
	userName      string
	userFullName  string
	userSuperuser bool
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
	Long:  `Create, list, and delete API tokens bound to user accounts.`,
}

// generateTokenCmd represents the generate command
var generateTokenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API token",
	Long:  `Generate a new API token for the user identified by --email.`,
	Run: func(cmd *cobra.Command, args []string) {
		generateToken()
	},
}

// listTokensCmd represents the list command
var listTokensCmd = &cobra.Command{
	Use:   "list",
	Short: "List all API tokens",
	Long:  `List all API tokens with their details`,
	Run: func(cmd *cobra.Command, args []string) {
		listTokens()
	},
}

// deleteTokenCmd represents the delete command
var deleteTokenCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an API token",
	Long:  `Delete an API token by its ID`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			log.Fatalf("Invalid ID format: %v", err)
		}
		deleteToken(uint(id))
	},
}

// createUserCmd represents the create-user command
var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user account",
	Long:  `Create a user account that API tokens can be issued for.`,
	Run: func(cmd *cobra.Command, args []string) {
		createUser()
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(generateTokenCmd)
	tokenCmd.AddCommand(listTokensCmd)
	tokenCmd.AddCommand(deleteTokenCmd)
	tokenCmd.AddCommand(createUserCmd)

	generateTokenCmd.Flags().StringVarP(&tokenName, "name", "n", "", "Name for the API token (required)")
	generateTokenCmd.Flags().StringVarP(&tokenUserEmail, "email", "u", "", "Email of the owning user (required)")
	generateTokenCmd.Flags().IntVarP(&expirationDays, "expiration", "e", 365, "Expiration in days (0 for never)")
	generateTokenCmd.MarkFlagRequired("name")
	generateTokenCmd.MarkFlagRequired("email")

	createUserCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	createUserCmd.Flags().StringVar(&userName, "username", "", "Username (required)")
	createUserCmd.Flags().StringVar(&userFullName, "full-name", "", "Full name")
	createUserCmd.Flags().BoolVar(&userSuperuser, "superuser", false, "Grant superuser access")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("username")
}

// generateSecureToken generates a secure random API token
func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func openRepository() (repository.Repository, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Info("Connecting to database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	return repository.NewRepository(db), func() { db.Close() }
}

// generateToken creates a new API token for a user
func generateToken() {
	repo, closer := openRepository()
	defer closer()

	user, err := repo.FindUserByEmail(context.Background(), tokenUserEmail)
	if err != nil {
		log.Fatalf("Failed to find user %s: %v", tokenUserEmail, err)
	}

	token, err := generateSecureToken(32) // 32 bytes = 256 bits
	if err != nil {
		log.Fatalf("Failed to generate secure token: %v", err)
	}

	apiToken := &models.APIToken{
		Token:  token,
		Name:   tokenName,
		UserID: user.ID,
	}
	if expirationDays > 0 {
		expiry := time.Now().AddDate(0, 0, expirationDays)
		apiToken.ExpiresAt = &expiry
	}

	if err := repo.CreateAPIToken(context.Background(), apiToken); err != nil {
		log.Fatalf("Failed to save API token: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Println("API token generated successfully!")
	fmt.Println("=================================================================")
	fmt.Printf("ID: %d\n", apiToken.ID)
	fmt.Printf("Name: %s\n", apiToken.Name)
	fmt.Printf("User: %s (%d)\n", user.Email, user.ID)
	if apiToken.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", apiToken.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("Expires: Never")
	}
	fmt.Println("-----------------------------------------------------------------")
	fmt.Printf("API Token: %s\n", apiToken.Token)
	fmt.Println("-----------------------------------------------------------------")
	fmt.Println("IMPORTANT: Store this token securely. It won't be displayed again.")
	fmt.Println("=================================================================")
}

// listTokens lists all API tokens
func listTokens() {
	repo, closer := openRepository()
	defer closer()

	tokens, err := repo.ListAPITokens(context.Background())
	if err != nil {
		log.Fatalf("Failed to list API tokens: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Printf("Total API tokens: %d\n", len(tokens))
	fmt.Println("=================================================================")
	for _, t := range tokens {
		fmt.Printf("ID: %d\n", t.ID)
		fmt.Printf("Name: %s\n", t.Name)
		fmt.Printf("User ID: %d\n", t.UserID)
		if t.ExpiresAt != nil {
			fmt.Printf("Expires: %s\n", t.ExpiresAt.Format(time.RFC3339))
		} else {
			fmt.Println("Expires: Never")
		}
		if t.LastUsedAt != nil {
			fmt.Printf("Last Used: %s\n", t.LastUsedAt.Format(time.RFC3339))
		} else {
			fmt.Println("Last Used: Never")
		}
		fmt.Println("-----------------------------------------------------------------")
	}
}

// deleteToken deletes an API token by ID
func deleteToken(id uint) {
	repo, closer := openRepository()
	defer closer()

	if err := repo.DeleteAPIToken(context.Background(), id); err != nil {
		log.Fatalf("Failed to delete API token: %v", err)
	}

	fmt.Printf("API token with ID %d deleted successfully.\n", id)
}

// createUser creates a user account
func createUser() {
	repo, closer := openRepository()
	defer closer()

	user := &models.User{
		Email:       userEmail,
		Username:    userName,
		FullName:    userFullName,
		IsActive:    true,
		IsSuperuser: userSuperuser,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User %s created with ID %d.\n", user.Email, user.ID)
}
