package opportunity

// Entry is a catalog template from which opportunities are generated
type Entry struct {
	Name             string
	Category         string
	Monetization     string
	EstimatedRevenue string
	BuildTime        string
	Complexity       string
	MarketDemand     string
	Competition      string
	Description      string
	Features         []string
	TechStack        []string
	BaseScore        float64
}

// DefaultCatalog returns the built-in market list
func DefaultCatalog() []Entry {
	return []Entry{
		{
			Name:             "AI Content Generator SaaS",
			Category:         "Productivity",
			Monetization:     "Subscription",
			EstimatedRevenue: "$5k-15k/month",
			BuildTime:        "2-3 days",
			Complexity:       "medium",
			MarketDemand:     "high",
			Competition:      "moderate",
			Description:      "AI-powered content generation tool for blogs, social media, and marketing",
			Features:         []string{"Multi-format content", "SEO optimization", "Brand voice learning", "Bulk generation"},
			TechStack:        []string{"React", "Node.js", "OpenAI API", "Stripe"},
			BaseScore:        8.5,
		},
		{
			Name:             "Smart Task Manager",
			Category:         "Productivity",
			Monetization:     "Freemium",
			EstimatedRevenue: "$3k-10k/month",
			BuildTime:        "1-2 days",
			Complexity:       "low",
			MarketDemand:     "high",
			Competition:      "high",
			Description:      "AI-enhanced task management with smart prioritization",
			Features:         []string{"AI priority suggestions", "Time blocking", "Team collaboration", "Analytics"},
			TechStack:        []string{"Vue.js", "Firebase", "AI integration"},
			BaseScore:        7.2,
		},
		{
			Name:             "No-Code App Builder",
			Category:         "Development Tools",
			Monetization:     "Subscription + Per-app fee",
			EstimatedRevenue: "$10k-30k/month",
			BuildTime:        "5-7 days",
			Complexity:       "high",
			MarketDemand:     "very high",
			Competition:      "moderate",
			Description:      "AI-assisted platform for building apps without coding",
			Features:         []string{"Drag-and-drop builder", "AI code generation", "One-click deploy", "Template marketplace"},
			TechStack:        []string{"React", "Node.js", "WebContainers", "Vercel"},
			BaseScore:        9.3,
		},
		{
			Name:             "Email Marketing Automation",
			Category:         "Marketing",
			Monetization:     "Subscription",
			EstimatedRevenue: "$7k-20k/month",
			BuildTime:        "3-4 days",
			Complexity:       "medium",
			MarketDemand:     "high",
			Competition:      "high",
			Description:      "AI-driven email campaigns with personalization",
			Features:         []string{"Smart segmentation", "A/B testing", "Personalization", "Analytics"},
			TechStack:        []string{"React", "Node.js", "Resend API", "Supabase"},
			BaseScore:        8.1,
		},
		{
			Name:             "Voice-to-App Platform",
			Category:         "AI Tools",
			Monetization:     "Pay-per-use + Subscription",
			EstimatedRevenue: "$8k-25k/month",
			BuildTime:        "4-5 days",
			Complexity:       "high",
			MarketDemand:     "very high",
			Competition:      "low",
			Description:      "Describe apps with voice, AI builds them instantly",
			Features:         []string{"Voice recognition", "Real-time building", "Multi-platform export", "AI refinement"},
			TechStack:        []string{"React", "Web Speech API", "OpenAI", "Docker"},
			BaseScore:        9.7,
		},
	}
}
