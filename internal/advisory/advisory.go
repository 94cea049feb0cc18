// Package advisory turns a prediction into templated recommendation text.
// Templates are pure: no learned component, no I/O after load.
package advisory

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/models"
)

// Rule is one advisory template. Placeholders {country}, {region}, {actor},
// {year}, and {confidence} are expanded at generation time.
type Rule struct {
	Prediction     string  `yaml:"prediction"`
	MinConfidence  float64 `yaml:"minConfidence"`
	Recommendation string  `yaml:"recommendation"`
	IfNoAction     string  `yaml:"ifNoAction"`
}

// ruleFile is the YAML root structure for an advisory pack.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Generator selects and expands advisory templates for predictions.
type Generator struct {
	rules  []Rule
	logger *slog.Logger
}

// NewGenerator loads an advisory pack from path. An empty or missing path
// yields the compiled-in templates.
func NewGenerator(path string, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules := defaultRules()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		} else {
			var file ruleFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, err
			}
			if len(file.Rules) > 0 {
				rules = file.Rules
			}
		}
	}

	return &Generator{rules: rules, logger: logger}, nil
}

// Generate expands the first matching template for the predicted class.
func (g *Generator) Generate(ev models.ConflictEvent, prediction string, confidence float64) models.Advisory {
	for _, rule := range g.rules {
		if rule.Prediction != "" && !strings.EqualFold(rule.Prediction, prediction) {
			continue
		}
		if confidence < rule.MinConfidence {
			continue
		}
		return models.Advisory{
			AIRecommendation: expand(rule.Recommendation, ev, confidence),
			IfNoAction:       expand(rule.IfNoAction, ev, confidence),
		}
	}

	// No template matched: fall through to the stability text so the
	// response always carries an advisory.
	fallback := defaultRules()[len(defaultRules())-1]
	return models.Advisory{
		AIRecommendation: expand(fallback.Recommendation, ev, confidence),
		IfNoAction:       expand(fallback.IfNoAction, ev, confidence),
	}
}

func expand(template string, ev models.ConflictEvent, confidence float64) string {
	replacer := strings.NewReplacer(
		"{country}", ev.Country,
		"{region}", ev.Admin1,
		"{actor}", ev.Actor1,
		"{year}", strconv.Itoa(ev.Year),
		"{confidence}", strconv.FormatFloat(confidence, 'f', 1, 64),
	)
	return replacer.Replace(template)
}

func defaultRules() []Rule {
	return []Rule{
		{
			Prediction: models.RiskHigh,
			Recommendation: "[WARNING] Strategic Advisory for {region}, {country}:\n" +
				"- Conflict probability is critically high involving key actor group '{actor}'.\n" +
				"- Immediate action plan:\n" +
				"   - Deploy rapid response peacekeeping units to deter escalation.\n" +
				"   - Initiate structured dialogues with representatives of '{actor}' and neutral mediators.\n" +
				"   - Utilize public communication channels to issue calming, verified information.\n" +
				"   - Increase humanitarian preparedness in vulnerable areas.\n" +
				"- Engage regional and international partners for intelligence coordination.",
			IfNoAction: "[ALERT] Intelligence Simulation:\n" +
				"- Unchecked risk may lead to widespread unrest and civilian fatalities.\n" +
				"- Escalation may spread to nearby states within 2-4 weeks.\n" +
				"- Economic disruptions and international scrutiny may follow.\n" +
				"- Recommend weekly monitoring if de-escalation efforts are delayed.",
		},
		{
			Prediction: models.RiskLow,
			Recommendation: "[STABLE] Stability Assessment for {region}, {country}:\n" +
				"- Current indicators suggest low conflict potential with '{actor}'.\n" +
				"- Recommended measures:\n" +
				"   - Continue standard monitoring protocols.\n" +
				"   - Maintain existing communication channels with local authorities.\n" +
				"   - Consider proactive community engagement to address minor concerns.\n" +
				"- Quarterly reassessment recommended unless conditions change.",
			IfNoAction: "[TREND] Trend Analysis:\n" +
				"- Region is expected to maintain current stability levels.\n" +
				"- Low probability of security deterioration in next 3 months.\n" +
				"- Standard intelligence gathering sufficient for ongoing assessment.\n" +
				"- Consider background research on historical {actor} activities for context.",
		},
	}
}
