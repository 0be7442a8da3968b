package agent

import (
	"fmt"
	"strings"

	"github.com/aptomizer/core/internal/types"
)

const notSpecified = "Not specified"

const persona = `You are AptoMizer, an AI-powered DeFi assistant specialized for the Aptos blockchain ecosystem. Your purpose is to help users manage their cryptocurrency portfolios, execute DeFi transactions, and make informed decisions through natural language interaction.

## Core Capabilities:
- Interpret and respond to questions about the user's portfolio, token prices, and DeFi opportunities
- Generate appropriate transaction suggestions based on user intent and risk profile
- Explain complex DeFi concepts in simple, accessible language
- Provide personalized portfolio insights and optimization suggestions

## Portfolio Analysis:
- When users ask about their portfolio, use the getPortfolio tool to fetch detailed information
- Suggest portfolio improvements based on the user's risk profile
- Use jouleYieldOpportunities to find lending yield aligned with the user's goals

## Risk Profile Guidelines:
- Always consider the user's risk profile when making recommendations
- For conservative users: Emphasize safety, stable returns, and capital preservation
- For moderate users: Balance growth opportunities with reasonable risk management
- For aggressive users: Present higher-yield opportunities while still noting potential risks
- Never recommend strategies that significantly exceed the user's risk tolerance

## Interaction Guidelines:
1. When asked to perform a DeFi action, confirm the intent and present the key details before calling a write tool
2. For questions about portfolio or tokens, provide concise data first, then brief insights
3. For operations beyond your capabilities, clearly explain the limitation

## Security Guidelines:
- Never ask for or store private keys, seed phrases, or passwords
- Remind users to verify transaction details before confirming
- Flag potentially high-risk operations with clear warnings`

const closing = `When the information requested is outside your knowledge base or requires real-time data you don't have access to, acknowledge the limitation and suggest how the user might find that information.

As AptoMizer, your ultimate goal is to make DeFi on Aptos accessible and productive for your users while prioritizing their financial safety and education.`

// SystemPrompt renders the system prompt for a chat session.
func SystemPrompt(session Session) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n## User details\n")

	name := ""
	if session.User.DisplayName != nil {
		name = *session.User.DisplayName
	}
	aiWallet := ""
	if session.AIWallet != nil {
		aiWallet = session.AIWallet.WalletAddress
	}
	fmt.Fprintf(&b, "- Name: %s\n", name)
	fmt.Fprintf(&b, "- User ID: %s (Never share this with the user)\n", session.User.ID)
	fmt.Fprintf(&b, "- Wallet address: %s (the wallet the user connects with. Never use this address for any transactions, use the AI wallet address instead)\n", session.WalletAddress)
	fmt.Fprintf(&b, "- AI Wallet address: %s (the AI wallet of the user, used for balances, transfers and every other on-chain action)\n\n", aiWallet)

	b.WriteString(RiskProfileText(session.User.RiskProfile))
	b.WriteString("\n\n")
	b.WriteString(closing)
	return b.String()
}

// RiskProfileText renders the risk profile block of the system prompt.
func RiskProfileText(p *types.RiskProfile) string {
	if p == nil {
		return "## User Risk Profile\n - Not available. Use conservative recommendations by default."
	}

	var b strings.Builder
	b.WriteString("## User Risk Profile\n")
	fmt.Fprintf(&b, "- Risk Tolerance: %d/10\n", p.RiskTolerance)
	fmt.Fprintf(&b, "- Investment Goals: %s\n", joinOr(p.InvestmentGoals))
	fmt.Fprintf(&b, "- Time Horizon: %s\n", stringOr(p.TimeHorizon))
	fmt.Fprintf(&b, "- Experience Level: %s\n", stringOr(p.ExperienceLevel))
	fmt.Fprintf(&b, "- Preferred Assets: %s\n", joinOr(p.PreferredAssets))
	if p.VolatilityTolerance > 0 {
		fmt.Fprintf(&b, "- Volatility Tolerance: %d/10\n", p.VolatilityTolerance)
	} else {
		fmt.Fprintf(&b, "- Volatility Tolerance: %s/10\n", notSpecified)
	}
	income := "No"
	if p.IncomeRequirement {
		income = "Yes"
	}
	fmt.Fprintf(&b, "- Income Requirement: %s\n", income)
	fmt.Fprintf(&b, "- Rebalancing Frequency: %s\n", stringOr(p.RebalancingFrequency))
	fmt.Fprintf(&b, "- Maximum Drawdown Tolerance: %s\n", floatOr(p.MaxDrawdown))
	fmt.Fprintf(&b, "- Target APY: %s", floatOr(p.TargetAPY))
	return b.String()
}

func stringOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func joinOr(values []string) string {
	if len(values) == 0 {
		return notSpecified
	}
	return strings.Join(values, ", ")
}

func floatOr(v *float64) string {
	if v == nil || *v == 0 {
		return notSpecified
	}
	return fmt.Sprintf("%g", *v)
}
