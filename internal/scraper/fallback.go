package scraper

import (
	"context"

	"go.uber.org/zap"

	"adluc/discovery-service/internal/model"
)

type seed struct {
	title, description, category, kind, link string
}

// seedCatalog keeps the listing page populated when every source is down.
var seedCatalog = []seed{
	{
		title:       "Estágio de Verão em Desenvolvimento Web",
		description: "Estágio de 3 meses para estudantes de informática. Trabalho com equipas de produto em projetos reais.",
		category:    "job",
		kind:        "internship",
		link:        "https://adluc.pt/oportunidades/estagio-verao-web",
	},
	{
		title:       "Bolsa de Investigação para Licenciados",
		description: "Bolsa de iniciação científica em projetos de investigação. Candidaturas abertas a recém-licenciados.",
		category:    "grant",
		kind:        "grant",
		link:        "https://adluc.pt/oportunidades/bolsa-investigacao",
	},
	{
		title:       "Programador Júnior (Remoto)",
		description: "Vaga para programador júnior em regime remoto. Formação inicial assegurada e progressão na carreira.",
		category:    "job",
		kind:        "job",
		link:        "https://adluc.pt/oportunidades/programador-junior",
	},
}

// SeedListings returns fresh copies of the seed catalog.
func SeedListings() []model.Listing {
	out := make([]model.Listing, 0, len(seedCatalog))
	for _, s := range seedCatalog {
		link := s.link
		out = append(out, model.Listing{
			Title:        s.title,
			Description:  s.description,
			Category:     model.StringPtr(s.category),
			ListingKind:  model.StringPtr(s.kind),
			IsExternal:   true,
			ExternalLink: &link,
		})
	}
	return out
}

// stageSeeds runs the seed catalog through dedup. Seeds already present are
// skipped, so repeated outages do not duplicate them.
func stageSeeds(ctx context.Context, d *Deduplicator, logger *zap.Logger) (staged []model.Listing, duplicates int) {
	for _, l := range SeedListings() {
		unique, err := d.Admit(ctx, *l.ExternalLink)
		if err != nil {
			logger.Warn("seed lookup failed", zap.String("link", *l.ExternalLink), zap.Error(err))
			continue
		}
		if !unique {
			duplicates++
			continue
		}
		staged = append(staged, l)
	}
	return staged, duplicates
}
