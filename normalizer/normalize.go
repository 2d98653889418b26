package normalizer

// Normalize runs the full pipeline over a raw webhook body: parse, unwrap one
// envelope, classify, and map structured elements to bundles. It never
// fails; bad input degrades to a weaker Kind. RawText always echoes raw.
func Normalize(raw string, ctx Context) (res Result) {
	res = Result{
		Kind:    KindRawText,
		Bundles: []ContentBundle{},
		Title:   ctx.Title,
		RawText: raw,
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: KindRawText, Bundles: []ContentBundle{}, Title: ctx.Title, RawText: raw}
		}
	}()

	value, ok := TryParseJSON(raw)
	if !ok {
		value = raw
	}
	value = Unwrap(value, 0)

	res.Kind = Classify(value)
	switch res.Kind {
	case KindStructured:
		res.Bundles = bundlesOf(value, ctx)
		if len(res.Bundles) > 0 && res.Bundles[0].Title != "" {
			res.Title = res.Bundles[0].Title
		}
	case KindError:
		res.ErrorMessage = errorMessage(value)
	}
	return res
}

func bundlesOf(value any, ctx Context) []ContentBundle {
	bundles := []ContentBundle{}
	switch v := value.(type) {
	case map[string]any:
		bundles = append(bundles, ToBundle(v, ctx))
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok || !hasContentKey(obj) {
				continue
			}
			bundles = append(bundles, ToBundle(obj, ctx))
		}
	}
	return bundles
}
