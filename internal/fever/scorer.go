package fever

import (
	"sort"
	"strings"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/models"
)

const (
	// ScoreCeiling 原始分归一化上限
	ScoreCeiling = 100
	// SecondaryFloor 次要分类的原始分必须超过该值
	SecondaryFloor = 20
)

// RawScores 按规则表累加原始分，不修改输入
func RawScores(b *models.FeverBundle, rules []Rule) map[models.FeverType]int {
	scores := make(map[models.FeverType]int, len(models.FeverTypes))
	for _, ft := range models.FeverTypes {
		scores[ft] = 0
	}
	if b == nil {
		return scores
	}
	for _, r := range rules {
		if r.When(b) {
			scores[r.Category] += r.Weight
		}
	}
	return scores
}

// Normalize 原始分转 0-100 置信度
func Normalize(raw int) int {
	c := raw * 100 / ScoreCeiling
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Rationale 胜出分类命中规则的说明片段，按规则顺序拼接
func Rationale(b *models.FeverBundle, category models.FeverType, rules []Rule) string {
	var parts []string
	for _, r := range rules {
		if r.Category == category && r.When(b) {
			parts = append(parts, r.Fragment(b))
		}
	}
	if len(parts) == 0 {
		return "no specific indicators matched"
	}
	return strings.Join(parts, ", ")
}

// Score 使用默认规则表评分
func Score(b *models.FeverBundle) models.FeverAssessment {
	return ScoreWith(b, Rules)
}

// ScoreWith 按给定规则表评分
// 年龄和性别目前不参与分类
func ScoreWith(b *models.FeverBundle, rules []Rule) models.FeverAssessment {
	if b == nil {
		b = &models.FeverBundle{}
	}
	raw := RawScores(b, rules)

	order := make([]models.FeverType, len(models.FeverTypes))
	copy(order, models.FeverTypes)
	sort.SliceStable(order, func(i, j int) bool {
		return raw[order[i]] > raw[order[j]]
	})

	all := make(map[models.FeverType]int, len(raw))
	for ft, s := range raw {
		all[ft] = Normalize(s)
	}

	primary := order[0]
	a := models.FeverAssessment{
		FeverType:         primary,
		PrimaryConfidence: all[primary],
		AllConfidences:    all,
		Rationale:         Rationale(b, primary, rules),
	}

	if len(order) > 1 {
		second := order[1]
		if raw[second] > SecondaryFloor {
			conf := all[second]
			a.SecondaryType = &second
			a.SecondaryConfidence = &conf
		}
	}

	return a
}
