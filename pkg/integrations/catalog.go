package integrations

import "github.com/foreman-dev/foreman/pkg/types"

// Auth types used by the catalog
const (
	AuthOAuth  = "oauth"
	AuthAPIKey = "api_key"
)

// DefaultCatalog returns the integrations users can connect
func DefaultCatalog() []types.Integration {
	return []types.Integration{
		{
			ID:              "vscode",
			Name:            "VS Code",
			Icon:            "💻",
			Description:     "Connect to VS Code for direct code editing and development",
			Status:          statusAvailable,
			Features:        []string{"Live code editing", "Extension integration", "Terminal access", "Debugging support"},
			SetupComplexity: "easy",
			RequiresAuth:    false,
		},
		{
			ID:              "googleDrive",
			Name:            "Google Drive",
			Icon:            "📁",
			Description:     "Store and manage project files in Google Drive",
			Status:          statusAvailable,
			Features:        []string{"File storage", "Document sharing", "Version control", "Collaboration"},
			SetupComplexity: "medium",
			RequiresAuth:    true,
			AuthType:        AuthOAuth,
		},
		{
			ID:              "googleDocs",
			Name:            "Google Docs",
			Icon:            "📝",
			Description:     "Create and edit documentation in Google Docs",
			Status:          statusAvailable,
			Features:        []string{"Documentation", "Real-time collaboration", "Comments", "Templates"},
			SetupComplexity: "medium",
			RequiresAuth:    true,
			AuthType:        AuthOAuth,
		},
		{
			ID:              "lovable",
			Name:            "Lovable",
			Icon:            "❤️",
			Description:     "AI-powered app builder integration",
			Status:          statusAvailable,
			Features:        []string{"Rapid prototyping", "AI code generation", "Visual editing", "Deployment"},
			SetupComplexity: "easy",
			RequiresAuth:    true,
			AuthType:        AuthAPIKey,
		},
		{
			ID:              "vercel",
			Name:            "Vercel",
			Icon:            "▲",
			Description:     "Deploy applications to Vercel",
			Status:          statusAvailable,
			Features:        []string{"Instant deployment", "Preview URLs", "Edge functions", "Analytics"},
			SetupComplexity: "easy",
			RequiresAuth:    true,
			AuthType:        AuthAPIKey,
		},
		{
			ID:              "resend",
			Name:            "Resend",
			Icon:            "✉️",
			Description:     "Send transactional emails with Resend",
			Status:          statusAvailable,
			Features:        []string{"Email delivery", "Templates", "Analytics", "Webhooks"},
			SetupComplexity: "easy",
			RequiresAuth:    true,
			AuthType:        AuthAPIKey,
		},
		{
			ID:              "supabase",
			Name:            "Supabase",
			Icon:            "⚡",
			Description:     "Backend as a service with Supabase",
			Status:          statusAvailable,
			Features:        []string{"Database", "Authentication", "Storage", "Realtime"},
			SetupComplexity: "medium",
			RequiresAuth:    true,
			AuthType:        AuthAPIKey,
		},
	}
}

const statusAvailable = "available"
