package labeler

import "slices"

var PrimaryCategories = []string{
	"AI/ML", "Web Development", "Mobile", "DevOps", "Data Science",
	"Security", "Gaming", "Tools", "Education", "Design",
	"Blockchain", "IoT", "Scientific Computing", "System Programming",
	"Database", "API", "Framework", "Library", "CLI Tool",
}

var (
	StarQualityLabels   = []string{"Exceptional", "High", "Good", "Standard", "Basic"}
	DocumentationLabels = []string{"Excellent", "Good", "Adequate", "Poor", "Missing"}
	MaintenanceLabels   = []string{"Active", "Maintained", "Slow", "Abandoned", "Archived"}
	UseCaseLabels       = []string{"Production-Ready", "Prototype", "Educational", "Research", "Experimental"}
	RecognitionLabels   = []string{"GitHub Stars", "Industry Awards", "Featured", "Trending", "Hidden Gem"}
	InnovationLabels    = []string{"Groundbreaking", "Innovative", "Standard", "Derivative", "Outdated"}

	PlatformLabels      = []string{"Web", "Mobile", "Desktop", "CLI", "Library", "API"}
	CommunitySizeLabels = []string{"Large", "Medium", "Small", "Niche"}
	ActivityLabels      = []string{"Very Active", "Active", "Moderate", "Low", "Inactive"}
	DiscoveryLabels     = []string{"Hidden Gem", "Rising Star", "Established", "Experimental", "Educational"}
)

// platformKeywords is ordered; detection appends in this order.
var platformKeywords = []struct {
	label    string
	keywords []string
}{
	{"Web", []string{"web", "website", "browser", "html", "css"}},
	{"Mobile", []string{"mobile", "ios", "android", "react-native", "flutter"}},
	{"Desktop", []string{"desktop", "gui", "electron", "qt"}},
	{"CLI", []string{"cli", "command-line", "terminal"}},
	{"Library", []string{"library", "sdk", "framework"}},
	{"API", []string{"api", "rest", "graphql", "server"}},
}

// categoryTopics maps topic tags onto primary categories when no summary
// category exists.
var categoryTopics = []struct {
	category string
	topics   []string
}{
	{"AI/ML", []string{"machine-learning", "deep-learning", "artificial-intelligence", "ai", "llm", "nlp", "computer-vision", "pytorch", "tensorflow"}},
	{"Web Development", []string{"web-development", "frontend", "backend", "full-stack", "react", "vue", "angular", "nodejs", "django", "flask", "nextjs"}},
	{"Mobile", []string{"mobile-app", "ios", "android", "react-native", "flutter"}},
	{"DevOps", []string{"docker", "kubernetes", "devops", "ci-cd", "terraform", "infrastructure"}},
	{"Data Science", []string{"data-science", "data-visualization", "analytics", "pandas", "jupyter"}},
	{"Security", []string{"security", "cryptography", "authentication", "pentesting"}},
	{"Gaming", []string{"game-development", "game-engine", "game", "gamedev"}},
	{"Blockchain", []string{"blockchain", "cryptocurrency", "web3", "ethereum"}},
	{"Database", []string{"database", "sql", "nosql", "postgresql", "redis"}},
	{"API", []string{"api", "rest-api", "graphql"}},
	{"CLI Tool", []string{"cli", "command-line", "terminal"}},
	{"Education", []string{"education", "tutorial", "learning", "course"}},
}

var frameworkTopics = []string{
	"react", "vue", "angular", "svelte", "nextjs", "django", "flask", "fastapi",
	"express", "spring", "rails", "laravel", "pytorch", "tensorflow", "gin", "echo",
}

var architectureKeywords = []struct {
	label    string
	keywords []string
}{
	{"Microservices", []string{"microservice"}},
	{"Serverless", []string{"serverless", "lambda"}},
	{"Plugin", []string{"plugin", "extension"}},
	{"Event-Driven", []string{"event-driven", "event-sourcing"}},
	{"Monorepo", []string{"monorepo"}},
}

func in(vocab []string, v string) bool { return slices.Contains(vocab, v) }
