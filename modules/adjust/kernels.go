package adjust

// WGSL mirrors of the formulas in adjustments.go. The shared prelude
// supplies srgb_channel, linear_channel, to_gamma and to_linear; helper
// functions carry a per-kernel prefix so fused shaders never collide.

const grayscaleWGSL = `fn gs_with_luminance(tint: vec3<f32>, lum: f32) -> vec3<f32> {
    let current = dot(tint, vec3<f32>(0.2126, 0.7152, 0.0722));
    if (current == 0.0) {
        return vec3<f32>(lum, lum, lum);
    }
    return clamp(tint * (lum / current), vec3<f32>(0.0), vec3<f32>(1.0));
}

fn grayscale(c: vec4<f32>, tint_r: f32, tint_g: f32, tint_b: f32, reds: f32, yellows: f32, greens: f32, cyans: f32, blues: f32, magentas: f32) -> vec4<f32> {
    let g = to_gamma(c);
    let gray_base = min(g.r, min(g.g, g.b));
    let red_part = g.r - gray_base;
    let green_part = g.g - gray_base;
    let blue_part = g.b - gray_base;

    var additional = 0.0;
    if (red_part == 0.0) {
        let cyan_part = min(green_part, blue_part);
        additional = cyan_part * cyans / 100.0 + (green_part - cyan_part) * greens / 100.0 + (blue_part - cyan_part) * blues / 100.0;
    } else if (green_part == 0.0) {
        let magenta_part = min(red_part, blue_part);
        additional = magenta_part * magentas / 100.0 + (red_part - magenta_part) * reds / 100.0 + (blue_part - magenta_part) * blues / 100.0;
    } else {
        let yellow_part = min(red_part, green_part);
        additional = yellow_part * yellows / 100.0 + (red_part - yellow_part) * reds / 100.0 + (green_part - yellow_part) * greens / 100.0;
    }

    let tinted = gs_with_luminance(vec3<f32>(tint_r, tint_g, tint_b), gray_base + additional);
    return to_linear(vec4<f32>(tinted, g.a));
}`

const invertWGSL = `fn invert(c: vec4<f32>) -> vec4<f32> {
    let g = to_gamma(c);
    return to_linear(vec4<f32>(g.a - g.r, g.a - g.g, g.a - g.b, g.a));
}`

const hueSaturationWGSL = `fn hs_hue_channel(p: f32, q: f32, t0: f32) -> f32 {
    var t = t0;
    if (t < 0.0) {
        t = t + 1.0;
    }
    if (t > 1.0) {
        t = t - 1.0;
    }
    if (t < 1.0 / 6.0) {
        return p + (q - p) * 6.0 * t;
    }
    if (t < 1.0 / 2.0) {
        return q;
    }
    if (t < 2.0 / 3.0) {
        return p + (q - p) * (2.0 / 3.0 - t) * 6.0;
    }
    return p;
}

fn hue_saturation(c: vec4<f32>, hue_shift: f32, saturation_shift: f32, lightness_shift: f32) -> vec4<f32> {
    let g = to_gamma(c);
    let cmax = max(g.r, max(g.g, g.b));
    let cmin = min(g.r, min(g.g, g.b));
    let l0 = (cmax + cmin) / 2.0;

    var h0 = 0.0;
    var s0 = 0.0;
    if (cmax != cmin) {
        let d = cmax - cmin;
        if (l0 > 0.5) {
            s0 = d / (2.0 - cmax - cmin);
        } else {
            s0 = d / (cmax + cmin);
        }
        if (cmax == g.r) {
            h0 = (g.g - g.b) / d;
            if (g.g < g.b) {
                h0 = h0 + 6.0;
            }
        } else if (cmax == g.g) {
            h0 = (g.b - g.r) / d + 2.0;
        } else {
            h0 = (g.r - g.g) / d + 4.0;
        }
        h0 = h0 / 6.0;
    }

    let h = (h0 + hue_shift / 360.0) % 1.0;
    let s = clamp(s0 + saturation_shift / 100.0, 0.0, 1.0);
    let l = clamp(l0 + lightness_shift / 100.0, 0.0, 1.0);

    var rgb = vec3<f32>(l, l, l);
    if (s != 0.0) {
        var q = l + s - l * s;
        if (l < 0.5) {
            q = l * (1.0 + s);
        }
        let p = 2.0 * l - q;
        rgb = vec3<f32>(hs_hue_channel(p, q, h + 1.0 / 3.0), hs_hue_channel(p, q, h), hs_hue_channel(p, q, h - 1.0 / 3.0));
    }
    return to_linear(vec4<f32>(rgb, g.a));
}`

const brightnessContrastWGSL = `fn brightness_contrast(c: vec4<f32>, brightness: f32, contrast: f32) -> vec4<f32> {
    let c8 = contrast * 2.55;
    let factor = (259.0 * (c8 + 255.0)) / (255.0 * (259.0 - c8));
    let g = to_gamma(c);
    let rgb = clamp(factor * (g.rgb - vec3<f32>(0.5)) + vec3<f32>(0.5 + brightness / 255.0), vec3<f32>(0.0), vec3<f32>(1.0));
    return to_linear(vec4<f32>(rgb, g.a));
}`

const levelsWGSL = `fn levels(c: vec4<f32>, shadows: f32, midtones: f32, highlights: f32, output_minimums: f32, output_maximums: f32) -> vec4<f32> {
    let g = to_gamma(c);

    let in_shadows = shadows / 100.0;
    let in_midtones = midtones / 100.0;
    let in_highlights = highlights / 100.0;
    let out_min = output_minimums / 100.0;
    let out_max = output_maximums / 100.0;

    let mid = out_min + (out_max - out_min) * in_midtones;
    var gamma = max((1.0 - mid) * 2.0, 0.01);
    if (mid < 0.5) {
        gamma = 1.0 + 9.0 * (1.0 - mid * 2.0);
    }

    let span = min(max(in_highlights - in_shadows, 1e-7), 1.0);
    var rgb = min(max(g.rgb - vec3<f32>(in_shadows), vec3<f32>(0.0)) / span, vec3<f32>(1.0));
    rgb = pow(rgb, vec3<f32>(1.0 / gamma));
    rgb = rgb * (out_max - out_min) + vec3<f32>(out_min);
    return to_linear(vec4<f32>(rgb, g.a));
}`

const thresholdWGSL = `fn threshold(c: vec4<f32>, min_luminance: f32, max_luminance: f32) -> vec4<f32> {
    let lo = linear_channel(min_luminance / 100.0);
    let hi = linear_channel(max_luminance / 100.0);
    let lum = dot(c.rgb, vec3<f32>(0.2126, 0.7152, 0.0722));
    if (lum >= lo && lum <= hi) {
        return vec4<f32>(1.0, 1.0, 1.0, 1.0);
    }
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}`

const vibranceWGSL = `fn vib_luminance(c: vec3<f32>) -> f32 {
    return dot(c, vec3<f32>(0.2126, 0.7152, 0.0722));
}

fn vibrance(c: vec4<f32>, amount: f32) -> vec4<f32> {
    let v = amount / 100.0;
    var slowed = v;
    if (v < 0.0) {
        slowed = v * 0.5;
    }

    let g = to_gamma(c);
    let channel_max = max(g.r, max(g.g, g.b));
    let channel_min = min(g.r, min(g.g, g.b));
    let channel_difference = channel_max - channel_min;

    var scale_multiplier = 1.0;
    if (channel_max == g.r && channel_difference > 0.0) {
        let t = min(abs(g.g - g.b) / channel_difference, 1.0);
        scale_multiplier = t * 0.5 + 0.5;
    }

    var scale = slowed * scale_multiplier * (2.0 - channel_difference);
    let channel_reduction = channel_min * scale;
    scale = 1.0 + scale * (1.0 - channel_difference);

    let luminance_initial = vib_luminance(c.rgb);
    var altered = to_linear(vec4<f32>(g.rgb * scale - vec3<f32>(channel_reduction), g.a)).rgb;
    let lum = vib_luminance(altered);
    if (lum > 0.0) {
        altered = altered * (luminance_initial / lum);
    }

    let altered_max = max(altered.r, max(altered.g, altered.b));
    if (srgb_channel(altered_max) > 1.0) {
        let l2 = vib_luminance(altered);
        if (altered_max > l2) {
            let s2 = (1.0 - l2) / (altered_max - l2);
            altered = (altered - vec3<f32>(l2)) * s2 + vec3<f32>(l2);
        }
    }

    if (v >= 0.0) {
        return vec4<f32>(altered, c.a);
    }

    let factor = -slowed;
    let ag = to_gamma(vec4<f32>(altered, c.a));
    let lum601 = dot(g.rgb, vec3<f32>(0.299, 0.587, 0.114));
    let blended = ag.rgb * (1.0 - factor) + vec3<f32>(lum601 * factor);
    return to_linear(vec4<f32>(blended, c.a));
}`

const posterizeWGSL = `fn posterize(c: vec4<f32>, levels_count: f32) -> vec4<f32> {
    let n = max(levels_count, 2.0);
    let size_of_areas = 1.0 / (n - 1.0);
    let g = to_gamma(c);
    let rgb = floor(g.rgb * n) * size_of_areas;
    return to_linear(vec4<f32>(rgb, g.a));
}`

const exponentWGSL = `fn exponent(c: vec4<f32>, power: f32) -> vec4<f32> {
    let g = to_gamma(c);
    var rgb = g.rgb;
    if (rgb.r > 0.0) {
        rgb.r = pow(rgb.r, power);
    }
    if (rgb.g > 0.0) {
        rgb.g = pow(rgb.g, power);
    }
    if (rgb.b > 0.0) {
        rgb.b = pow(rgb.b, power);
    }
    return to_linear(vec4<f32>(rgb, g.a));
}`

const opacityWGSL = `fn opacity(c: vec4<f32>, amount: f32) -> vec4<f32> {
    return vec4<f32>(c.r, c.g, c.b, c.a * amount / 100.0);
}`
