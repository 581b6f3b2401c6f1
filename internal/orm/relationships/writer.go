package relationships

import (
	"context"
	"fmt"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// Replace rewrites the edge set of rel for the owner row so that it holds
// exactly ids. Callers resolve ids first; belongs_to edges live in the
// owner's own column and are written with the row instead.
func (w *Writer) Replace(
	ctx context.Context,
	x Execer,
	owner *schema.EntityType,
	rel *schema.Relationship,
	ownerID int64,
	ids []int64,
) error {
	switch rel.Type {
	case schema.RelationshipManyToMany:
		return w.replaceJoinRows(ctx, x, rel, ownerID, ids)
	case schema.RelationshipHasMany:
		return w.replaceForeignKeys(ctx, x, rel, ownerID, ids)
	case schema.RelationshipHasOne:
		if len(ids) > 1 {
			return fmt.Errorf("%w: %s.%s", ErrTooManyTargets, owner.Name, rel.Name)
		}
		return w.replaceForeignKeys(ctx, x, rel, ownerID, ids)
	default:
		return fmt.Errorf("%w: cannot replace %s edges of %s.%s", ErrInvalidRelationType, rel.Type, owner.Name, rel.Name)
	}
}

func (w *Writer) replaceJoinRows(ctx context.Context, x Execer, rel *schema.Relationship, ownerID int64, ids []int64) error {
	d := w.dialect

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.Quote(rel.JoinTable), d.Quote(rel.OwnerKey), d.Placeholder(1))
	if _, err := x.ExecContext(ctx, del, ownerID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", rel.Name, err)
	}

	ins := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		d.Quote(rel.JoinTable), d.Quote(rel.OwnerKey), d.Quote(rel.TargetKey),
		d.Placeholder(1), d.Placeholder(2))
	for _, id := range ids {
		if _, err := x.ExecContext(ctx, ins, ownerID, id); err != nil {
			return fmt.Errorf("failed to link %s %d: %w", rel.Name, id, err)
		}
	}
	return nil
}

// replaceForeignKeys detaches the targets no longer in ids (deleting them
// when the relationship owns its targets) and points the rest at the owner.
func (w *Writer) replaceForeignKeys(ctx context.Context, x Execer, rel *schema.Relationship, ownerID int64, ids []int64) error {
	tgt, err := target(w.registry, rel)
	if err != nil {
		return err
	}
	d := w.dialect
	table := d.Quote(tgt.Table)
	fk := d.Quote(rel.ForeignKey)
	pk := d.Quote(schema.FieldID)

	pb := d.NewParamBuilder()
	var detach string
	if rel.Orphans == schema.OrphanDelete {
		detach = fmt.Sprintf("DELETE FROM %s WHERE %s = %s", table, fk, pb.Add(ownerID))
	} else {
		detach = fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s", table, fk, fk, pb.Add(ownerID))
	}
	if len(ids) > 0 {
		detach += fmt.Sprintf(" AND %s NOT IN (%s)", pk, pb.AddList(ids))
	}
	if _, err := x.ExecContext(ctx, detach, pb.Params()...); err != nil {
		return fmt.Errorf("failed to detach %s: %w", rel.Name, err)
	}

	if len(ids) == 0 {
		return nil
	}

	pb = d.NewParamBuilder()
	attach := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IN (%s)",
		table, fk, pb.Add(ownerID), pk, pb.AddList(ids))
	if _, err := x.ExecContext(ctx, attach, pb.Params()...); err != nil {
		return fmt.Errorf("failed to attach %s: %w", rel.Name, err)
	}
	return nil
}
