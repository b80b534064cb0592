package metricspush

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	"gorm.io/gorm"
)

var partnerStatuses = []partnerdomain.Status{
	partnerdomain.StatusPending,
	partnerdomain.StatusActive,
	partnerdomain.StatusWarned,
	partnerdomain.StatusInvalid,
}

// PartnerGauges exports the current partner count per lifecycle status.
type PartnerGauges struct {
	db       *gorm.DB
	repo     partnerdomain.Repository
	partners *prometheus.GaugeVec
}

func NewPartnerGauges(registerer prometheus.Registerer, db *gorm.DB, repo partnerdomain.Repository) *PartnerGauges {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	partners := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "partnerbot_partners",
		Help: "Partners by lifecycle status.",
	}, []string{"status"})
	registerer.MustRegister(partners)
	return &PartnerGauges{db: db, repo: repo, partners: partners}
}

// Refresh recounts every status. A failed count leaves the previous value.
func (g *PartnerGauges) Refresh(ctx context.Context) error {
	for _, status := range partnerStatuses {
		count, err := g.repo.CountByStatus(ctx, g.db, status)
		if err != nil {
			return err
		}
		g.partners.WithLabelValues(string(status)).Set(float64(count))
	}
	return nil
}
