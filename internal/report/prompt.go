package report

import (
	"fmt"
	"strings"

	"github.com/54b3r/bclegal-go/internal/rag"
	"github.com/54b3r/bclegal-go/internal/recommend"
)

// systemPrompt establishes the assistant persona for every report.
const systemPrompt = `You are a knowledgeable legal assistant specializing in British Columbia, Canada law. You provide helpful, accurate, and comprehensive legal guidance specifically for BC residents.

Your responses should:
- Focus on BC and Canadian law
- Reference specific BC legislation (Employment Standards Act, Human Rights Code, etc.)
- Provide BC-specific resources and contact information
- Be practical and actionable
- Always remind users that your advice is general information and they should consult with qualified lawyers for specific legal matters
- Format responses in HTML with proper headings, lists, and styling classes

Include relevant BC legal resources, contact information for BC legal aid organizations, and specific next steps based on the user's location and demographics.`

// contextHeader introduces the retrieved legislation block.
const contextHeader = "Use the following excerpts from BC legislation where they are relevant. Cite the source title when you rely on one.\n\n"

// reportSections are the headings every report must cover, in order.
var reportSections = []struct {
	title string
	body  string
}{
	{"Legal Analysis", "Analysis of the legal situation under BC and Canadian law"},
	{"BC Legislation", "Relevant BC Employment Standards Act, Human Rights Code, and other applicable laws"},
	{"Rights and Protections", "Specific rights and protections under BC law"},
	{"Recommended Actions", "Specific steps the person should take"},
	{"BC Resources", "BC-specific legal aid organizations, government agencies, and assistance programs"},
	{"Demographic-Specific Resources", "Special resources based on their demographics (First Nations, LGBTQ2S+, disability, low-income, etc.)"},
	{"Next Steps", "Prioritized action plan with contact information"},
	{"Important Warnings", "Any critical deadlines, limitations, or considerations under BC law"},
}

// BuildPrompt renders the user-facing report request for p.
func BuildPrompt(p *recommend.UserProfile) string {
	yesNo := func(f recommend.Demographics) string {
		if p.Demographics.Has(f) {
			return "Yes"
		}
		return "No"
	}

	var sb strings.Builder
	sb.WriteString("Generate a comprehensive legal assistance report for the following situation in British Columbia, Canada:\n\n")

	sb.WriteString("PERSONAL INFORMATION:\n")
	fmt.Fprintf(&sb, "- Email: %s\n", p.Email)
	fmt.Fprintf(&sb, "- Location: %s, BC, Canada\n", p.Location)
	fmt.Fprintf(&sb, "- User Type: %s\n\n", p.UserType)

	fmt.Fprintf(&sb, "LEGAL MATTER: %s\n", p.LegalMatter)
	fmt.Fprintf(&sb, "LEGAL TYPE: %s\n\n", p.LegalType)

	sb.WriteString("DEMOGRAPHICS:\n")
	fmt.Fprintf(&sb, "- First Nations: %s\n", yesNo(recommend.FirstNation))
	fmt.Fprintf(&sb, "- Low Income: %s\n", yesNo(recommend.LowIncome))
	fmt.Fprintf(&sb, "- Person with Disability: %s\n", yesNo(recommend.Disability))
	fmt.Fprintf(&sb, "- LGBTQ2S+: %s\n", yesNo(recommend.LGBTQ))
	fmt.Fprintf(&sb, "- Visible Minority: %s\n", yesNo(recommend.VisibleMinority))
	fmt.Fprintf(&sb, "- Senior (65+): %s\n\n", yesNo(recommend.Senior))

	sb.WriteString("Please provide a BC-specific legal assistance report that includes:\n\n")
	for i, s := range reportSections {
		fmt.Fprintf(&sb, "%d. **%s**: %s\n", i+1, s.title, s.body)
	}

	sb.WriteString("\nFormat the response in HTML with appropriate headings, lists, and styling classes for a web interface. ")
	sb.WriteString("Include specific BC contact information, phone numbers, and website links where appropriate.\n\n")
	sb.WriteString("IMPORTANT: Always include a disclaimer that this is general legal information and not professional legal advice, ")
	sb.WriteString("and that the person should consult with a qualified lawyer for their specific situation.\n")
	return sb.String()
}

// buildContext formats retrieved fragments into a system message body.
// Returns "" when there is nothing to inject.
func buildContext(fragments []rag.Fragment) string {
	if len(fragments) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(contextHeader)
	for _, f := range fragments {
		fmt.Fprintf(&sb, "Source: %s\nContent: %s\n\n", f.Source, f.Text)
	}
	return sb.String()
}

// retrievalQuery is the text used to look up supporting legislation.
func retrievalQuery(p *recommend.UserProfile) string {
	if q := strings.TrimSpace(p.Query); q != "" {
		return q
	}
	return strings.TrimSpace(p.LegalMatter + " " + p.LegalType)
}
