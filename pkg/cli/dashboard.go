package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mchmarny/riskview/pkg/config"
	"github.com/mchmarny/riskview/pkg/model"
	"github.com/mchmarny/riskview/pkg/net"
	"github.com/mchmarny/riskview/pkg/warehouse"
	"golang.org/x/sync/errgroup"
)

// dashboard is the application state shared by every render: the warehouse
// session, the scored table cache and the artifact loader.
type dashboard struct {
	conn     *config.Connection
	provider *warehouse.Provider
	tables   *warehouse.Cache
	loader   *model.Loader
}

func newDashboard(ctx context.Context, conn *config.Connection, cacheModel bool) *dashboard {
	return &dashboard{
		conn:     conn,
		provider: warehouse.NewProvider(conn),
		tables:   warehouse.NewCache(),
		loader: model.NewLoader(conn.Stage.URL, conn.Stage.Model, conn.ScratchDir,
			model.WithCache(cacheModel),
			model.WithHTTPClient(net.GetStageClient(ctx, conn.Stage.Token)),
		),
	}
}

func (d *dashboard) close() error {
	return d.provider.Close()
}

type featureView struct {
	Algorithm string         `json:"algorithm" yaml:"algorithm"`
	Features  []string       `json:"features" yaml:"features"`
	Selected  []string       `json:"selected,omitempty" yaml:"selected,omitempty"`
	Shown     model.Ranking  `json:"shown" yaml:"shown"`
	Summary   *model.Summary `json:"summary" yaml:"summary"`
}

func (v *featureView) header() table.Row {
	return table.Row{"#", "Feature", "Importance"}
}

func (v *featureView) rows() []table.Row {
	list := make([]table.Row, len(v.Shown))
	for i, s := range v.Shown {
		list[i] = table.Row{i + 1, s.Feature, strconv.FormatFloat(s.Score, 'f', 4, 64)}
	}
	return list
}

// featureImportance ranks the scored table's features by the model's
// importances and picks the ones to display.
func (d *dashboard) featureImportance(ctx context.Context, selected []string, n int) (*featureView, error) {
	s, err := d.provider.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to warehouse: %w", err)
	}

	var (
		tbl      *warehouse.Table
		artifact *model.Artifact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tbl, err = d.tables.Table(gctx, s, d.conn.Tables.Scored)
		return err
	})
	g.Go(func() error {
		var err error
		artifact, err = d.loader.Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	features := tbl.FeatureColumns(d.conn.Columns.Label, d.conn.Columns.Prediction)
	ranking, err := model.Rank(features, artifact)
	if err != nil {
		return nil, fmt.Errorf("ranking features of %s: %w", tbl.Name, err)
	}

	shown := model.Select(ranking, selected, n)
	summary, err := model.Summarize(shown, ranking)
	if err != nil {
		return nil, fmt.Errorf("summarizing importances: %w", err)
	}

	return &featureView{
		Algorithm: artifact.Algorithm,
		Features:  features,
		Selected:  selected,
		Shown:     shown,
		Summary:   summary,
	}, nil
}

type educationView struct {
	Column string                     `json:"column" yaml:"column"`
	Counts []*warehouse.CategoryCount `json:"counts" yaml:"counts"`
}

func (v *educationView) header() table.Row {
	return table.Row{"Education Type", "Count"}
}

func (v *educationView) rows() []table.Row {
	list := make([]table.Row, len(v.Counts))
	for i, c := range v.Counts {
		list[i] = table.Row{c.Category, c.Count}
	}
	return list
}

// education counts applications per education type, fresh on every call.
func (d *dashboard) education(ctx context.Context) (*educationView, error) {
	s, err := d.provider.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to warehouse: %w", err)
	}

	counts, err := warehouse.CountBy(ctx, s, d.conn.Tables.Applications, d.conn.Columns.Education)
	if err != nil {
		return nil, err
	}

	return &educationView{
		Column: d.conn.Columns.Education,
		Counts: counts,
	}, nil
}
