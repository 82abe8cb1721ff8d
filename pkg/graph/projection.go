package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Projection mirrors case profiles and linked-case edges into the graph so
// cluster and related-case questions are one Cypher hop instead of a
// relational self-join. The relational store stays authoritative; projection
// failures are logged by callers and never roll back a transaction.
type Projection struct {
	client *Client
	logger ectologger.Logger
}

// NewProjection creates a new graph projection service
func NewProjection(client *Client, logger ectologger.Logger) *Projection {
	return &Projection{
		client: client,
		logger: logger,
	}
}

// ProjectProfile creates or refreshes the Case node for a profile
func (p *Projection) ProjectProfile(ctx context.Context, profile *models.CaseProfile) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.ProjectProfile")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"profile_id": profile.ID,
		"tenant_id":  profile.TenantID,
	})

	facts := profile.Facts.GetValue()

	props := map[string]any{
		"id":                   profile.ID,
		"tenant_id":            profile.TenantID,
		"case_id":              profile.CaseID,
		"classification_state": string(profile.ClassificationState),
		"person_name":          facts.PersonName,
		"jurisdiction":         facts.Jurisdiction,
		"locality":             facts.Locality,
		"is_minor":             facts.IsMinor,
		"high_vulnerability":   facts.HighVulnerability,
		"priority_score":       profile.RevivalPriorityScore,
		"updated_at":           profile.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if profile.BecameColdAt != nil {
		props["became_cold_at"] = profile.BecameColdAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	if facts.DisappearedOn != nil {
		props["disappeared_on"] = facts.DisappearedOn.UTC().Format("2006-01-02")
	}
	if facts.Latitude != nil && facts.Longitude != nil {
		props["latitude"] = *facts.Latitude
		props["longitude"] = *facts.Longitude
	}

	cypher := `
		MERGE (c:Case {id: $id, tenant_id: $tenant_id})
		SET c = $props
		RETURN c
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        profile.ID,
			"tenant_id": profile.TenantID,
			"props":     props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project case into graph")
		return fmt.Errorf("failed to project case into graph: %w", err)
	}

	log.Debug("Projected case into graph")
	return nil
}

// ProjectLink creates or refreshes the LINKED_TO edge for a confirmed link.
// The edge is stored once, from the lower profile id to the higher, matching
// the relational unordered-pair constraint.
func (p *Projection) ProjectLink(ctx context.Context, link *models.LinkedCase, similarity float64) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.ProjectLink")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"link_id":      link.ID,
		"profile_a_id": link.ProfileAID,
		"profile_b_id": link.ProfileBID,
	})

	props := map[string]any{
		"id":         link.ID,
		"origin":     string(link.Origin),
		"similarity": similarity,
		"created_at": link.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if link.PatternMatchID != nil {
		props["pattern_match_id"] = *link.PatternMatchID
	}

	cypher := `
		MATCH (a:Case {id: $profile_a_id, tenant_id: $tenant_id})
		MATCH (b:Case {id: $profile_b_id, tenant_id: $tenant_id})
		MERGE (a)-[r:LINKED_TO]->(b)
		SET r = $props
		RETURN r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"profile_a_id": link.ProfileAID,
			"profile_b_id": link.ProfileBID,
			"tenant_id":    link.TenantID,
			"props":        props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project link into graph")
		return fmt.Errorf("failed to project link into graph: %w", err)
	}

	log.Debug("Projected link into graph")
	return nil
}

// RemoveProfile deletes the Case node and its edges, used when the upstream
// case record is hard-deleted
func (p *Projection) RemoveProfile(ctx context.Context, tenantID string, profileID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.RemoveProfile")
	defer span.End()

	cypher := `
		MATCH (c:Case {id: $id, tenant_id: $tenant_id})
		DETACH DELETE c
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        profileID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to remove case from graph")
		return fmt.Errorf("failed to remove case from graph: %w", err)
	}

	return nil
}
